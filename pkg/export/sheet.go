package export

import "fmt"

// Column describes one table column of a grade sheet.
type Column struct {
	Key   string
	Label string
	// Align is a gofpdf alignment string ("L", "C", "R"); CSV ignores it.
	Align string
}

// Sheet is a titled table with trailing summary lines.
type Sheet struct {
	Title   string
	Caption []string
	Columns []Column
	Rows    []map[string]string
	Summary [][2]string
}

// Renderer turns a sheet into a downloadable document.
type Renderer interface {
	Render(sheet Sheet) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer registered for format.
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "", "csv":
		return CSV{}, nil
	case "pdf":
		return PDF{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func (s Sheet) validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("sheet requires at least one column")
	}
	return nil
}
