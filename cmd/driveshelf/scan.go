package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/mmcdole/driveshelf/internal/domain"
	"github.com/mmcdole/driveshelf/internal/tui/styles"
)

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

func (a *app) scan(ctx context.Context) error {
	interactive := term.IsTerminal(int(os.Stdout.Fd()))

	type result struct {
		catalog domain.Catalog
		err     error
	}
	resultCh := make(chan result, 1)
	go func() {
		c, err := a.library.Commands().ScanLibrary(ctx)
		resultCh <- result{c, err}
	}()

	var res result
	if interactive {
		res = <-spin(os.Stdout, "Scanning library...", resultCh)
	} else {
		res = <-resultCh
	}
	if res.err != nil {
		return fmt.Errorf("scan failed: %w", res.err)
	}

	dups, err := a.library.Queries().Duplicates(ctx)
	if err != nil {
		return err
	}

	if interactive {
		printSummary(os.Stdout, res.catalog, dups)
		return nil
	}
	fmt.Printf("movies=%d series=%d episodes=%d files=%d skipped=%d duplicates=%d\n",
		len(res.catalog.Movies), len(res.catalog.Series), episodeCount(res.catalog),
		res.catalog.TotalFiles, len(res.catalog.SkippedFolders), len(dups))
	return nil
}

// spin animates a spinner on w until in delivers, then forwards the value
func spin[T any](w io.Writer, label string, in <-chan T) <-chan T {
	out := make(chan T, 1)
	go func() {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		frame := 0
		fmt.Fprintf(w, "\r%s %s", styles.SpinnerFrames[frame], label)
		for {
			select {
			case v := <-in:
				fmt.Fprint(w, clearSpinnerLine)
				out <- v
				return
			case <-ticker.C:
				frame++
				fmt.Fprintf(w, "\r%s %s", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)], label)
			}
		}
	}()
	return out
}

func episodeCount(c domain.Catalog) int {
	n := 0
	for _, s := range c.Series {
		n += s.EpisodeCount()
	}
	return n
}

func printSummary(w io.Writer, c domain.Catalog, dups [][]domain.Movie) {
	fmt.Fprintln(w, styles.HeaderStyle.Render("Library scanned"))

	row := func(label string, value any) {
		fmt.Fprintln(w, styles.LabelStyle.Render(label)+styles.TitleStyle.Render(fmt.Sprint(value)))
	}
	row("Movies", len(c.Movies))
	row("Series", len(c.Series))
	row("Episodes", episodeCount(c))
	row("Files", c.TotalFiles)
	row("Scanned at", c.LastScanned.Local().Format(time.DateTime))

	if len(c.SkippedFolders) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.ErrorStyle.Render(fmt.Sprintf("%d folders could not be listed", len(c.SkippedFolders))))
		for _, id := range c.SkippedFolders {
			fmt.Fprintln(w, "  "+styles.DimStyle.Render(id))
		}
	}

	if len(dups) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.AccentStyle.Render(fmt.Sprintf("%d possible duplicates", len(dups))))
		for _, group := range dups {
			for _, m := range group {
				line := "  - " + m.Title
				if m.Year != "" {
					line += " (" + m.Year + ")"
				}
				if m.Quality != "" {
					line += " " + styles.DimBadgeStyle.Render(m.Quality)
				}
				fmt.Fprintln(w, line+" "+styles.DimStyle.Render(m.ID))
			}
		}
	}
}
