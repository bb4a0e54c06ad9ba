package kyc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrWatchlistUnavailable wraps problems opening or parsing the watchlist
// file. Callers treat it as "screening skipped", not as a failure.
var ErrWatchlistUnavailable = errors.New("watchlist unavailable")

// CSVWatchlist reads the PEP/blacklist reference data from a flat CSV
// file with at least first_name and last_name columns. The file is read
// on every lookup so the reference data can be swapped without a restart.
//
// Matching is a case-insensitive substring comparison on both names. It
// is deliberately naive; swap in a fuzzy matcher behind WatchlistSource
// if false positives become a problem.
type CSVWatchlist struct {
	Path string
}

// NewCSVWatchlist creates a watchlist over the given file path.
func NewCSVWatchlist(path string) *CSVWatchlist {
	return &CSVWatchlist{Path: path}
}

// Lookup reports whether the declared name matches any watchlist entry.
func (w *CSVWatchlist) Lookup(firstName, lastName string) (bool, error) {
	first := strings.ToLower(strings.TrimSpace(firstName))
	last := strings.ToLower(strings.TrimSpace(lastName))
	if first == "" || last == "" {
		return false, nil
	}

	f, err := os.Open(w.Path)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrWatchlistUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return false, fmt.Errorf("%w: reading header: %v", ErrWatchlistUnavailable, err)
	}

	firstIdx, lastIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "first_name":
			firstIdx = i
		case "last_name":
			lastIdx = i
		}
	}
	if firstIdx < 0 || lastIdx < 0 {
		return false, fmt.Errorf("%w: missing first_name/last_name columns", ErrWatchlistUnavailable)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrWatchlistUnavailable, err)
		}
		if len(row) <= firstIdx || len(row) <= lastIdx {
			continue
		}
		if strings.Contains(strings.ToLower(row[lastIdx]), last) &&
			strings.Contains(strings.ToLower(row[firstIdx]), first) {
			return true, nil
		}
	}
}
