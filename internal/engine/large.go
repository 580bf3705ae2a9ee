package engine

import (
	"context"
	"sort"
)

// TableSize is one line of a large-table listing.
type TableSize struct {
	Table string `json:"table" yaml:"table"`
	Rows  int64  `json:"rows" yaml:"rows"`
	Large bool   `json:"large" yaml:"large"`
}

// LargeTables lists tables by catalog estimate, largest first and then by
// name. Only tables above threshold are listed unless showAll is set; top
// caps the listing when positive.
func (s *Scanner) LargeTables(ctx context.Context, threshold int64, top int, showAll bool, skip []string) ([]TableSize, error) {
	names, err := s.in.TableNames(ctx)
	if err != nil {
		return nil, s.abort(ctx, err)
	}
	names, _ = FilterSkipList(names, skip)

	var sizes []TableSize
	for _, name := range names {
		if ctx.Err() != nil {
			return sizes, ctx.Err()
		}
		rows, err := s.estimate(ctx, name)
		if err != nil {
			if fatal(ctx, err) {
				return nil, err
			}
			s.log.WithError(err).Warnf("cannot estimate rows of %s", name)
			continue
		}
		large := rows > threshold
		if large || showAll {
			sizes = append(sizes, TableSize{Table: name, Rows: rows, Large: large})
		}
	}

	SortBySize(sizes)
	if top > 0 && len(sizes) > top {
		sizes = sizes[:top]
	}
	return sizes, nil
}

// SortBySize orders by row count descending, then name ascending.
func SortBySize(sizes []TableSize) {
	sort.SliceStable(sizes, func(i, j int) bool {
		if sizes[i].Rows != sizes[j].Rows {
			return sizes[i].Rows > sizes[j].Rows
		}
		return sizes[i].Table < sizes[j].Table
	})
}
