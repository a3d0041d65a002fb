package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "activity:42", ActivityKey(42))
	assert.Equal(t, "activity:42:user:user_1:results", ResultsKey(42, "user_1"))
	assert.Equal(t, "activity:7:user:u:submission", SubmissionKey(7, "u"))
	assert.Equal(t, "activity:7:user:u:urlsubmission", URLSubmissionKey(7, "u"))
}
