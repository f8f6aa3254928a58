package chapters

import (
	"strings"
	"testing"
)

func TestParseSimpleBuildsOneEditionWithNamedAtoms(t *testing.T) {
	src := strings.Join([]string{
		"CHAPTER01=00:00:00.000",
		"CHAPTER01NAME=Intro",
		"CHAPTER02=00:05:12.340",
		"CHAPTER02NAME=Chapter 2",
	}, "\n")

	tr := NewTree()
	if err := tr.ParseSimple(strings.NewReader(src), "eng"); err != nil {
		t.Fatal(err)
	}
	if len(tr.Editions) != 1 {
		t.Fatalf("expected one edition, got %d", len(tr.Editions))
	}
	atoms := tr.Editions[0].Atoms
	if len(atoms) != 2 {
		t.Fatalf("expected two atoms, got %d", len(atoms))
	}
	if atoms[0].StartNS != 0 || atoms[0].Displays[0].String != "Intro" {
		t.Fatalf("unexpected first atom: %+v", atoms[0])
	}
	wantNS := int64((5*60+12)*1000+340) * 1_000_000
	if atoms[1].StartNS != wantNS || atoms[1].Displays[0].String != "Chapter 2" {
		t.Fatalf("unexpected second atom: %+v, want start %d", atoms[1], wantNS)
	}
}

func TestParseSimpleRejectsNameBeforeTimestamp(t *testing.T) {
	tr := NewTree()
	err := tr.ParseSimple(strings.NewReader("CHAPTER01NAME=Intro\n"), "eng")
	if err == nil {
		t.Fatal("expected an error for a NAME line with no matching timestamp")
	}
}

func TestParseSimpleDefaultsMissingNameToChapterNumber(t *testing.T) {
	tr := NewTree()
	if err := tr.ParseSimple(strings.NewReader("CHAPTER01=00:00:01.000\n"), "eng"); err != nil {
		t.Fatal(err)
	}
	if got := tr.Editions[0].Atoms[0].Displays[0].String; got != "CHAPTER01" {
		t.Fatalf("expected fallback display name, got %q", got)
	}
}

func TestRenderProducesChaptersElement(t *testing.T) {
	tr := NewTree()
	if _, err := tr.AddEdition(Edition{Atoms: []Atom{
		{StartNS: 0, Enabled: true, Displays: []Display{{String: "Intro", Language: "eng"}}},
	}}); err != nil {
		t.Fatal(err)
	}
	e, err := tr.Render()
	if err != nil {
		t.Fatal(err)
	}
	if e == nil {
		t.Fatal("expected a non-nil Chapters element")
	}
}
