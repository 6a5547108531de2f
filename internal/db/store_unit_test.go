package db

import (
	"testing"

	"resume-matcher/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecords(t *testing.T) {
	records := newRecords("resumes", 4,
		[][]float32{{1, -0.5, 0.25}, {0, 1, 0}},
		[]models.IndexEntry{{SourceID: "RES_0"}, {SourceID: "RES_1"}},
	)
	require.Len(t, records, 2)

	assert.Equal(t, "resumes", records[0].Collection)
	assert.Equal(t, 4, records[0].Position)
	assert.Equal(t, 5, records[1].Position)
	assert.Equal(t, "RES_1", records[1].Entry.SourceID)
	assert.Equal(t, []float32{0, 1, 0}, records[1].Embedding.Slice())

	v, err := records[0].Embedding.Value()
	require.NoError(t, err)
	assert.Equal(t, "[1,-0.5,0.25]", v)
}
