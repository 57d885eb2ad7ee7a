package negotiate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/servefile/negotiate"
)

func TestParseAcceptEncoding_Quality(t *testing.T) {
	tt := []struct {
		Name   string
		Header string
		Coding negotiate.Coding
		Q      int
		Found  bool
	}{
		{Name: "bare token", Header: "gzip", Coding: negotiate.Gzip, Q: 1000, Found: true},
		{Name: "q=1", Header: "gzip;q=1", Coding: negotiate.Gzip, Q: 1000, Found: true},
		{Name: "q=1.", Header: "gzip;q=1.", Coding: negotiate.Gzip, Q: 1000, Found: true},
		{Name: "q=1.000", Header: "gzip;q=1.000", Coding: negotiate.Gzip, Q: 1000, Found: true},
		{Name: "q=0", Header: "gzip;q=0", Coding: negotiate.Gzip, Q: 0, Found: true},
		{Name: "q=0.1", Header: "gzip;q=0.1", Coding: negotiate.Gzip, Q: 100, Found: true},
		{Name: "q=0.23", Header: "gzip;q=0.23", Coding: negotiate.Gzip, Q: 230, Found: true},
		{Name: "q=0.456", Header: "gzip; Q=0.456", Coding: negotiate.Gzip, Q: 456, Found: true},
		{Name: "case insensitive coding", Header: "GZip", Coding: negotiate.Gzip, Q: 1000, Found: true},
		{Name: "highest duplicate wins", Header: "gzip;q=0.2, gzip;q=0.7", Coding: negotiate.Gzip, Q: 700, Found: true},
		{Name: "wildcard covers", Header: "*;q=0.3", Coding: negotiate.Brotli, Q: 300, Found: true},
		{Name: "explicit beats wildcard", Header: "*;q=0.3, br;q=0.9", Coding: negotiate.Brotli, Q: 900, Found: true},
		{Name: "not listed", Header: "gzip", Coding: negotiate.Brotli, Found: false},

		{Name: "q above one", Header: "gzip;q=1.1", Coding: negotiate.Gzip, Found: false},
		{Name: "q two", Header: "gzip;q=2.0", Coding: negotiate.Gzip, Found: false},
		{Name: "four decimals", Header: "gzip;q=0.0000", Coding: negotiate.Gzip, Found: false},
		{Name: "four zero decimals", Header: "gzip;q=1.0000", Coding: negotiate.Gzip, Found: false},
		{Name: "not a number", Header: "gzip;q=high", Coding: negotiate.Gzip, Found: false},
		{Name: "unknown parameter", Header: "gzip;level=1", Coding: negotiate.Gzip, Found: false},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			a := negotiate.ParseAcceptEncoding(tc.Header)
			q, found := a.Quality(tc.Coding)
			assert.Equal(t, tc.Found, found)
			assert.Equal(t, tc.Q, q)
		})
	}
}

func TestParseAcceptEncoding_Absent(t *testing.T) {
	a := negotiate.ParseAcceptEncoding("  ")
	assert.False(t, a.Present)
	assert.Empty(t, a.Listed)
	assert.False(t, a.ExcludesIdentity())
}

func TestCandidates(t *testing.T) {
	all := []negotiate.Coding{negotiate.Brotli, negotiate.Zstd, negotiate.Gzip}

	tt := []struct {
		Name      string
		Header    string
		Available []negotiate.Coding
		Want      []negotiate.Coding
	}{
		{Name: "absent header", Header: "", Available: all, Want: []negotiate.Coding{negotiate.Identity}},
		{Name: "preferred coding missing on disk", Header: "br;q=1.0, gzip;q=0.5", Available: []negotiate.Coding{negotiate.Gzip}, Want: []negotiate.Coding{negotiate.Gzip, negotiate.Identity}},
		{Name: "ordered by q", Header: "gzip;q=0.9, br;q=0.5", Available: all, Want: []negotiate.Coding{negotiate.Gzip, negotiate.Brotli, negotiate.Identity}},
		{Name: "ties favour compression", Header: "gzip, zstd, br", Available: all, Want: []negotiate.Coding{negotiate.Brotli, negotiate.Zstd, negotiate.Gzip, negotiate.Identity}},
		{Name: "zero q excluded", Header: "br;q=0, gzip", Available: all, Want: []negotiate.Coding{negotiate.Gzip, negotiate.Identity}},
		{Name: "wildcard", Header: "*", Available: []negotiate.Coding{negotiate.Gzip, negotiate.Brotli}, Want: []negotiate.Coding{negotiate.Brotli, negotiate.Gzip, negotiate.Identity}},
		{Name: "identity preferred", Header: "identity, gzip;q=0.5", Available: all, Want: []negotiate.Coding{negotiate.Identity, negotiate.Gzip}},
		{Name: "identity tie loses", Header: "identity, gzip", Available: all, Want: []negotiate.Coding{negotiate.Gzip, negotiate.Identity}},
		{Name: "identity excluded stays last", Header: "identity;q=0, gzip", Available: all, Want: []negotiate.Coding{negotiate.Gzip, negotiate.Identity}},
		{Name: "nothing available", Header: "br, gzip", Available: nil, Want: []negotiate.Coding{negotiate.Identity}},
		{Name: "unknown coding ignored", Header: "compress, gzip;q=0.1", Available: all, Want: []negotiate.Coding{negotiate.Gzip, negotiate.Identity}},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			got := negotiate.Candidates(negotiate.ParseAcceptEncoding(tc.Header), tc.Available)
			assert.Equal(t, tc.Want, got)
		})
	}
}

func TestExcludesIdentity(t *testing.T) {
	assert.True(t, negotiate.ParseAcceptEncoding("identity;q=0").ExcludesIdentity())
	assert.True(t, negotiate.ParseAcceptEncoding("gzip, *;q=0").ExcludesIdentity())
	assert.False(t, negotiate.ParseAcceptEncoding("identity;q=0.1, *;q=0").ExcludesIdentity())
	assert.False(t, negotiate.ParseAcceptEncoding("gzip").ExcludesIdentity())
}

func TestSupport(t *testing.T) {
	s, err := negotiate.ParseSupport("TEXT")
	assert.NoError(t, err)
	assert.Equal(t, negotiate.SupportText, s)

	_, err = negotiate.ParseSupport("sometimes")
	assert.Error(t, err)

	tt := []struct {
		Name        string
		Support     negotiate.Support
		ContentType string
		Want        bool
	}{
		{Name: "never html", Support: negotiate.SupportNever, ContentType: "text/html; charset=utf-8", Want: false},
		{Name: "text html", Support: negotiate.SupportText, ContentType: "text/html; charset=utf-8", Want: true},
		{Name: "text json", Support: negotiate.SupportText, ContentType: "application/json", Want: true},
		{Name: "text svg", Support: negotiate.SupportText, ContentType: "image/svg+xml", Want: true},
		{Name: "text png", Support: negotiate.SupportText, ContentType: "image/png", Want: false},
		{Name: "all png", Support: negotiate.SupportAll, ContentType: "image/png", Want: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, tc.Support.Eligible(tc.ContentType))
		})
	}
}

func TestDefaultVariants(t *testing.T) {
	v := negotiate.DefaultVariants()
	assert.Len(t, v, 3)
	assert.Equal(t, negotiate.Variant{Coding: negotiate.Gzip, Suffix: ".gz"}, v[2])
}
