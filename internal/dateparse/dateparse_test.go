package dateparse

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets(t *testing.T) {
	cases := []struct {
		p    *Parser
		in   string
		want string
	}{
		{US, "March 5th, 2016", "2016-03-05"},
		{US, "3/5/2016", "2016-03-05"},
		{US, "March 2016", "2016-03"},
		{US, "Published: Feb 8, 2005 | 1:03 PM EST", "2005-02-08"},
		{UK, "5th of March, 2016", "2016-03-05"},
		{UK, "5/3/2016", "2016-03-05"},
		{UK, "march 2016", "2016-03"},
		{ISO, "2016-03-05", "2016-03-05"},
		{ISO, "Released 2016 March 5th", "2016-03-05"},
		{ISO, "2016", "2016"},
	}
	for _, c := range cases {
		got, err := c.p.Parse(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParse_NoDate(t *testing.T) {
	_, err := ISO.Parse("no date here")
	assert.Error(t, err)
}

func TestNew_InvalidFormat(t *testing.T) {
	for _, f := range []string{"<m>/<d>", "<y>-<d>"} {
		_, err := New(f)
		assert.True(t, errors.Is(err, ErrInvalidFormat), f)
	}
	_, err := New("<y>(")
	assert.Error(t, err)
}

func TestParser_Callbacks(t *testing.T) {
	p, err := New(`<d>\.<m>\.<y>`)
	require.NoError(t, err)
	p.Day = func(s string) string { return strings.TrimLeft(s, "0") }

	got, err := p.Parse("07.7.2001")
	require.NoError(t, err)
	assert.Equal(t, "2001-07-07", got)
}

func TestMonthNumber(t *testing.T) {
	assert.Equal(t, "09", MonthNumber("sept"))
	assert.Equal(t, "12", MonthNumber("DECEMBER"))
	assert.Equal(t, "ab", MonthNumber("ab"))
	assert.Equal(t, "Foo", MonthNumber("Foo"))
}
