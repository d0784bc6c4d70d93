package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	syncx "github.com/01Taka/study-tracker/internal/sync"
)

// Bundle is the user-facing interchange document. Identity fields and
// history linkage are stripped on export and regenerated on import, so an
// imported bundle never collides with existing data.
type Bundle struct {
	Workbooks []BundleWorkbook `json:"workbooks"`
}

type BundleWorkbook struct {
	Name         string              `json:"name"`
	ProblemLists []BundleProblemList `json:"problemLists"`
}

type BundleProblemList struct {
	Name        string            `json:"name"`
	Hierarchies []BundleHierarchy `json:"hierarchies"`
}

type BundleHierarchy struct {
	Name  string       `json:"name"`
	Units []BundleUnit `json:"units"`
}

// BundleUnit is a ProblemUnit without identity or history fields. Problem
// numbers are kept so the sub-answer structure survives the round trip.
type BundleUnit struct {
	Question    string      `json:"question,omitempty"`
	Problems    []Problem   `json:"problems"`
	Scoring     int         `json:"scoring"`
	ProblemType ProblemType `json:"problemType"`
	AnswerType  AnswerType  `json:"answerType"`
}

// Export collects every workbook into a Bundle.
func (s *Service) Export(ctx context.Context) (Bundle, error) {
	wbs, err := s.store.Workbooks(ctx)
	if err != nil {
		return Bundle{}, err
	}
	bundle := Bundle{Workbooks: make([]BundleWorkbook, 0, len(wbs))}
	for _, wb := range wbs {
		bwb := BundleWorkbook{Name: wb.Name}
		for _, pl := range wb.ProblemLists {
			bpl := BundleProblemList{Name: pl.Name}
			for _, hid := range pl.HierarchyIDs {
				h, err := s.store.Hierarchy(ctx, hid)
				if errors.Is(err, ErrNotFound) {
					continue
				}
				if err != nil {
					return Bundle{}, fmt.Errorf("export: hierarchy %s: %w", hid, err)
				}
				units, err := s.store.Units(ctx, h.UnitVersionIDs)
				if err != nil {
					return Bundle{}, err
				}
				bh := BundleHierarchy{Name: h.Name, Units: make([]BundleUnit, 0, len(units))}
				for _, u := range units {
					bh.Units = append(bh.Units, BundleUnit{
						Question:    u.Question,
						Problems:    u.Problems,
						Scoring:     u.Scoring,
						ProblemType: u.ProblemType,
						AnswerType:  u.AnswerType,
					})
				}
				bpl.Hierarchies = append(bpl.Hierarchies, bh)
			}
			bwb.ProblemLists = append(bwb.ProblemLists, bpl)
		}
		bundle.Workbooks = append(bundle.Workbooks, bwb)
	}
	return bundle, nil
}

// ExportJSON renders the bundle as indented JSON, the on-disk file format.
func (s *Service) ExportJSON(ctx context.Context) ([]byte, error) {
	bundle, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(bundle, "", "  ")
}

// Import materializes a bundle alongside existing data. All ids (workbook,
// problem list, hierarchy, unit, answer structure) are freshly generated
// and lastAttemptedAt resets to zero: history cannot be transferred.
func (s *Service) Import(ctx context.Context, bundle Bundle) ([]Workbook, error) {
	existing, err := s.store.Workbooks(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UnixMilli()

	var imported []Workbook
	var hierarchies []Hierarchy
	var units []ProblemUnit

	for _, bwb := range bundle.Workbooks {
		wb := Workbook{
			ID:           s.newID(),
			Name:         bwb.Name,
			CreatedAt:    now,
			ProblemLists: []ProblemList{},
		}
		for _, bpl := range bwb.ProblemLists {
			pl := ProblemList{
				ID:           s.newID(),
				Name:         bpl.Name,
				CreatedAt:    now,
				HierarchyIDs: []string{},
			}
			for _, bh := range bpl.Hierarchies {
				h := Hierarchy{
					HierarchyID:    s.newID(),
					ProblemListID:  pl.ID,
					WorkbookID:     wb.ID,
					Name:           bh.Name,
					UnitVersionIDs: []string{},
				}
				for _, bu := range bh.Units {
					if len(bu.Problems) == 0 {
						return nil, fmt.Errorf("import: unit with no problems in hierarchy %q", bh.Name)
					}
					u := ProblemUnit{
						UnitID:            s.newID(),
						HierarchyID:       h.HierarchyID,
						ProblemListID:     pl.ID,
						WorkbookID:        wb.ID,
						Question:          bu.Question,
						Problems:          append([]Problem(nil), bu.Problems...),
						Scoring:           bu.Scoring,
						ProblemType:       bu.ProblemType,
						AnswerType:        bu.AnswerType,
						LastAttemptedAt:   0,
						AnswerStructureID: s.newID(),
					}
					units = append(units, u)
					h.UnitVersionIDs = append(h.UnitVersionIDs, u.UnitID)
				}
				hierarchies = append(hierarchies, h)
				pl.HierarchyIDs = append(pl.HierarchyIDs, h.HierarchyID)
			}
			wb.ProblemLists = append(wb.ProblemLists, pl)
		}
		imported = append(imported, wb)
	}

	if err := s.store.PutUnits(ctx, units); err != nil {
		return nil, err
	}
	for _, h := range hierarchies {
		if err := s.store.PutHierarchy(ctx, h); err != nil {
			return nil, err
		}
	}
	if err := s.store.SaveWorkbooks(ctx, append(existing, imported...)); err != nil {
		return nil, err
	}
	syncx.Record(ctx, s.events, syncx.TypeBundleImported, "", map[string]int{
		"workbooks": len(imported),
		"units":     len(units),
	})
	return imported, nil
}

// ImportJSON parses and imports an exported bundle document.
func (s *Service) ImportJSON(ctx context.Context, data []byte) ([]Workbook, error) {
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("import: parse bundle: %w", err)
	}
	return s.Import(ctx, bundle)
}
