package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/servefile/digestcache/internal/schema"
)

var want = map[string]schema.Column{
	"path":   {Type: "text"},
	"size":   {Type: "integer"},
	"digest": {Type: "blob"},
}

func TestCompare(t *testing.T) {
	tt := []struct {
		Name           string
		Got            map[string]schema.Column
		WantMissing    []string
		WantMismatched []string
	}{
		{
			Name: "identical",
			Got:  want,
		},
		{
			Name: "type case and extra columns ignored",
			Got: map[string]schema.Column{
				"path":   {Type: "TEXT"},
				"size":   {Type: "INTEGER"},
				"digest": {Type: "BLOB"},
				"extra":  {Type: "text", Nullable: true},
			},
		},
		{
			Name: "missing columns sorted",
			Got: map[string]schema.Column{
				"path": {Type: "text"},
			},
			WantMissing: []string{"digest", "size"},
		},
		{
			Name: "type and nullability mismatch",
			Got: map[string]schema.Column{
				"path":   {Type: "text", Nullable: true},
				"size":   {Type: "text"},
				"digest": {Type: "blob"},
			},
			WantMismatched: []string{"path", "size"},
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			err := schema.Compare("digests", want, tc.Got)
			if tc.WantMissing == nil && tc.WantMismatched == nil {
				assert.NoError(t, err)
				return
			}

			var se *schema.Error
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "digests", se.Table)
			assert.Equal(t, tc.WantMissing, se.Missing)

			var names []string
			for _, m := range se.Mismatched {
				names = append(names, m.Column)
			}
			assert.Equal(t, tc.WantMismatched, names)
			assert.Contains(t, err.Error(), "table digests schema validation failed")
		})
	}
}
