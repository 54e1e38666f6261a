package display

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"tarkeep/internal/backup"
)

// Service renders user-facing console output. Log lines go to the logger;
// this package covers the human summary printed on stdout.
type Service struct {
	out     io.Writer
	colored bool
}

// NewService creates a display service writing to stdout. Color is enabled
// only on a terminal and can be forced off.
func NewService(noColor bool) *Service {
	colored := !noColor && isatty.IsTerminal(os.Stdout.Fd())
	return &Service{out: os.Stdout, colored: colored}
}

// NewServiceWithWriter creates a display service for tests
func NewServiceWithWriter(w io.Writer) *Service {
	return &Service{out: w}
}

func (s *Service) paint(c *color.Color, text string) string {
	if !s.colored {
		return text
	}
	return c.Sprint(text)
}

// Printf writes a plain formatted line
func (s *Service) Printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

// Success writes a green success line
func (s *Service) Success(msg string) {
	fmt.Fprintln(s.out, s.paint(color.New(color.FgGreen), msg))
}

// Failure writes a red failure line
func (s *Service) Failure(msg string) {
	fmt.Fprintln(s.out, s.paint(color.New(color.FgRed), msg))
}

// ArchiveTable renders the destination's archives newest first
func (s *Service) ArchiveTable(archives []*backup.Archive) {
	if len(archives) == 0 {
		s.Printf("No archives found")
		return
	}

	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCREATED\tSIZE")
	for _, archive := range archives {
		created := "unknown"
		if !archive.CreatedAt.IsZero() {
			created = archive.CreatedAt.Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", archive.Name, created, humanSize(archive.Size))
	}
	w.Flush()
}

// RotationSummary renders the kept/deleted outcome of a rotation pass
func (s *Service) RotationSummary(report *backup.RotationReport) {
	mode := ""
	if report.DryRun {
		mode = " (dry run)"
	}
	s.Printf("Rotation%s: %d processed, %d kept, %d deleted, %d exempt",
		mode, report.Processed, report.Kept, report.Deleted, report.Exempt)
}

// humanSize formats a byte count for table output
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
