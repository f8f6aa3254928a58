package chapters

import "testing"

func validEdition(tr *Tree) Edition {
	return Edition{
		Atoms: []Atom{
			{StartNS: 0, Displays: []Display{{String: "Chapter 1", Language: "eng"}}},
		},
	}
}

func TestAddEditionAssignsUIDsAndRejectsDuplicates(t *testing.T) {
	tr := NewTree()
	ed, err := tr.AddEdition(validEdition(tr))
	if err != nil {
		t.Fatal(err)
	}
	if ed.UID == 0 || ed.Atoms[0].UID == 0 {
		t.Fatal("expected auto-assigned UIDs")
	}

	dup := validEdition(tr)
	dup.UID = ed.UID
	if _, err := tr.AddEdition(dup); err == nil {
		t.Fatal("expected duplicate edition UID to be rejected")
	}
}

func TestAddEditionRejectsEmpty(t *testing.T) {
	tr := NewTree()
	if _, err := tr.AddEdition(Edition{}); err == nil {
		t.Fatal("expected empty edition to be rejected")
	}
}

func TestCheckMandatoryCatchesMissingDisplay(t *testing.T) {
	tr := NewTree()
	ed := Edition{Atoms: []Atom{{UID: 1, StartNS: 0}}}
	tr.Editions = append(tr.Editions, ed)
	if err := tr.CheckMandatory(); err == nil {
		t.Fatal("expected missing ChapterDisplay to fail CheckMandatory")
	}
}

func TestAdjustTimecodesClampsAtZero(t *testing.T) {
	tr := NewTree()
	tr.Editions = []Edition{{Atoms: []Atom{{StartNS: 1000, EndNS: 2000}}}}
	tr.AdjustTimecodes(-5000)
	if tr.Editions[0].Atoms[0].StartNS != 0 {
		t.Fatalf("got %d, want clamped to 0", tr.Editions[0].Atoms[0].StartNS)
	}
}

func TestSplitPointsSortedAndDeduped(t *testing.T) {
	tr := NewTree()
	tr.Editions = []Edition{
		{Atoms: []Atom{{StartNS: 500}, {StartNS: 100}}},
		{Atoms: []Atom{{StartNS: 100}, {StartNS: 900}}},
	}
	got := tr.SplitPoints()
	want := []int64{100, 500, 900}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
