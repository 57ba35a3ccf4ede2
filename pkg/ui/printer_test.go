package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrinter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, false)

	p.PrintInfo("Query", "red cats")
	p.PrintSuccess("Downloaded 3/4 images")
	p.PrintWarning("1 image skipped")
	p.PrintError("download failed", errors.New("disk full"))
	p.PrintPanel("Summary", []Row{
		{Label: "Candidates", Value: "4"},
		{Label: "Saved", Value: "3"},
	})

	assert.Contains(t, out.String(), "Query")
	assert.Contains(t, out.String(), "red cats")
	assert.Contains(t, out.String(), "Downloaded 3/4 images")
	assert.Contains(t, out.String(), "1 image skipped")
	assert.Contains(t, out.String(), "Summary")
	assert.Contains(t, out.String(), "Candidates")
	assert.NotContains(t, out.String(), "disk full")
	assert.Contains(t, errOut.String(), "download failed: disk full")
}

func TestQuietPrinterOnlyWritesErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, true)

	p.PrintInfo("Query", "cats")
	p.PrintSuccess("done")
	p.PrintPanel("Summary", []Row{{Label: "a", Value: "b"}})
	p.PrintError("nothing to download", nil)

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "nothing to download")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "3m5s", FormatDuration(3*time.Minute+5*time.Second))
	assert.Equal(t, "2h1m", FormatDuration(2*time.Hour+time.Minute))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "2.0 MB", FormatBytes(2<<20))
}
