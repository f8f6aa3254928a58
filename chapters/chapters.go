// Package chapters implements the chapter/edition tree, its UID
// uniqueness pools, mandatory-child checks, and timecode adjustment
// (spec.md §4.10).
package chapters

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/mkvgo/mkvmux/ebml"
	"github.com/mkvgo/mkvmux/matroska"
	"github.com/mkvgo/mkvmux/mlog"
	"github.com/mkvgo/mkvmux/muxerr"
)

// Display is one language/string pair of a ChapterAtom's
// ChapterDisplay sub-master.
type Display struct {
	String   string
	Language string // ISO-639-2
}

// Atom is one chapter entry. StartNS/EndNS are nanoseconds already
// adjusted to the file's base (zero-clamped).
type Atom struct {
	UID      uint64
	StartNS  int64
	EndNS    int64 // 0 if absent
	Hidden   bool
	Enabled  bool
	Displays []Display
}

// Edition is an ordered, non-empty list of chapter Atoms.
type Edition struct {
	UID     uint64
	Hidden  bool
	Default bool
	Ordered bool
	Atoms   []Atom
}

// Tree is the in-memory chapter document: an ordered list of
// Editions, plus the three UID pools the spec requires uniqueness
// against (spec.md §4.10: "chapters, editions, attachments").
type Tree struct {
	Editions []Edition

	chapterUIDs    map[uint64]bool
	editionUIDs    map[uint64]bool
	attachmentUIDs map[uint64]bool
}

// NewTree returns an empty chapter tree with fresh UID pools.
func NewTree() *Tree {
	return &Tree{
		chapterUIDs:    map[uint64]bool{},
		editionUIDs:    map[uint64]bool{},
		attachmentUIDs: map[uint64]bool{},
	}
}

// RegisterAttachmentUID reserves uid in the attachment pool so a later
// chapter/edition UID collision against it is caught; attachments
// themselves are built elsewhere in the control plane.
func (t *Tree) RegisterAttachmentUID(uid uint64) error {
	if t.attachmentUIDs[uid] || t.editionUIDs[uid] || t.chapterUIDs[uid] {
		return &muxerr.InvariantError{Op: "chapters.RegisterAttachmentUID", Err: fmt.Errorf("UID %d already in use", uid)}
	}
	t.attachmentUIDs[uid] = true
	return nil
}

// NewUID returns a random 64-bit UID not already present in any of the
// three pools, grounded on using a UUID generator as the random source
// rather than hand-rolled PRNG state (spec.md §4.7: "UID (random
// unique)").
func (t *Tree) NewUID() uint64 {
	for {
		id := uuid.New()
		v := uint64(0)
		for i := 0; i < 8; i++ {
			v = v<<8 | uint64(id[i])
		}
		if v != 0 && !t.chapterUIDs[v] && !t.editionUIDs[v] && !t.attachmentUIDs[v] {
			return v
		}
	}
}

// AddEdition appends ed after validating its UID (if non-zero, it must
// be unique) and assigning a fresh one if zero.
func (t *Tree) AddEdition(ed Edition) (Edition, error) {
	if len(ed.Atoms) == 0 {
		return ed, &muxerr.InvariantError{Op: "chapters.AddEdition", Err: fmt.Errorf("edition must contain at least one chapter atom")}
	}
	if ed.UID == 0 {
		ed.UID = t.NewUID()
	} else if t.editionUIDs[ed.UID] {
		return ed, &muxerr.InvariantError{Op: "chapters.AddEdition", Err: fmt.Errorf("duplicate edition UID %d", ed.UID)}
	}
	t.editionUIDs[ed.UID] = true

	for i := range ed.Atoms {
		a := &ed.Atoms[i]
		if a.UID == 0 {
			a.UID = t.NewUID()
		} else if t.chapterUIDs[a.UID] {
			return ed, &muxerr.InvariantError{Op: "chapters.AddEdition", Err: fmt.Errorf("duplicate chapter UID %d", a.UID)}
		}
		t.chapterUIDs[a.UID] = true
		if len(a.Displays) == 0 {
			return ed, &muxerr.InvariantError{Op: "chapters.AddEdition", Err: fmt.Errorf("chapter atom UID %d has no ChapterDisplay", a.UID)}
		}
	}

	t.Editions = append(t.Editions, ed)
	return ed, nil
}

// CheckMandatory enforces spec.md §4.10: each edition has ≥1 atom,
// each atom has a start time, a UID, and ≥1 display with both a
// string and a language.
func (t *Tree) CheckMandatory() error {
	for _, ed := range t.Editions {
		if len(ed.Atoms) == 0 {
			return &muxerr.InvariantError{Op: "chapters.CheckMandatory", Err: fmt.Errorf("edition %d has no chapter atoms", ed.UID)}
		}
		for _, a := range ed.Atoms {
			if a.UID == 0 {
				return &muxerr.InvariantError{Op: "chapters.CheckMandatory", Err: fmt.Errorf("chapter atom missing UID")}
			}
			if len(a.Displays) == 0 {
				return &muxerr.InvariantError{Op: "chapters.CheckMandatory", Err: fmt.Errorf("chapter atom %d missing ChapterDisplay", a.UID)}
			}
			for _, d := range a.Displays {
				if d.String == "" || d.Language == "" {
					return &muxerr.InvariantError{Op: "chapters.CheckMandatory", Err: fmt.Errorf("chapter atom %d has an incomplete display", a.UID)}
				}
			}
		}
	}
	return nil
}

// AdjustTimecodes shifts every atom's start/end time by deltaNS,
// clamping at zero (Matroska has no negative timecodes) and logging a
// warning — not silently — the first time a clamp occurs, matching
// mkvmerge's own mxwarn behavior (DESIGN.md Open Question decision).
func (t *Tree) AdjustTimecodes(deltaNS int64) {
	warned := false
	clamp := func(ns int64) int64 {
		shifted := ns + deltaNS
		if shifted < 0 {
			if !warned {
				mlog.With("chapters").Warn().
					Int64("delta_ns", deltaNS).
					Msg("chapter timecode adjustment clamped to zero")
				warned = true
			}
			return 0
		}
		return shifted
	}
	for i := range t.Editions {
		for j := range t.Editions[i].Atoms {
			a := &t.Editions[i].Atoms[j]
			a.StartNS = clamp(a.StartNS)
			if a.EndNS > 0 {
				a.EndNS = clamp(a.EndNS)
			}
		}
	}
}

// Render builds the Chapters master's ebml.Element tree, verified
// against chaptersContext's mandatory children (one EditionEntry per
// Edition, a ChapterUID/ChapterTimeStart/ChapterDisplay per Atom).
func (t *Tree) Render() (*ebml.Element, error) {
	editions := make([]matroska.ChapterEdition, len(t.Editions))
	for i, ed := range t.Editions {
		atoms := make([]matroska.ChapterAtom, len(ed.Atoms))
		for j, a := range ed.Atoms {
			displays := make([]matroska.ChapterDisplay, len(a.Displays))
			for k, d := range a.Displays {
				displays[k] = matroska.ChapterDisplay{String: d.String, Language: d.Language}
			}
			atoms[j] = matroska.ChapterAtom{
				UID:      a.UID,
				StartNS:  a.StartNS,
				EndNS:    a.EndNS,
				Hidden:   a.Hidden,
				Enabled:  a.Enabled,
				Displays: displays,
			}
		}
		editions[i] = matroska.ChapterEdition{
			UID:     ed.UID,
			Hidden:  ed.Hidden,
			Default: ed.Default,
			Ordered: ed.Ordered,
			Atoms:   atoms,
		}
	}
	return matroska.RenderChapters(editions)
}

// SplitPoints returns every edition's atom start times, deduplicated
// and sorted ascending, for use as chapter-driven cluster split points
// (spec.md §4.10 "Chapter-driven splits").
func (t *Tree) SplitPoints() []int64 {
	seen := map[int64]bool{}
	var points []int64
	for _, ed := range t.Editions {
		for _, a := range ed.Atoms {
			if !seen[a.StartNS] {
				seen[a.StartNS] = true
				points = append(points, a.StartNS)
			}
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i] < points[j] })
	return points
}
