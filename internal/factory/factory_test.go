package factory

import (
	"errors"
	"reflect"
	"testing"

	"bincfg/internal/bincfgerr"
)

func TestCreateKnownArchitectures(t *testing.T) {
	for _, arch := range []string{AVR, ARMv5} {
		c, err := Create(arch)
		if err != nil {
			t.Errorf("Create(%q): %v", arch, err)
			continue
		}
		if c == nil {
			t.Errorf("Create(%q) returned a nil Classifier", arch)
		}
	}
}

func TestCreateUnknownArchitecture(t *testing.T) {
	_, err := Create("mips")
	if !errors.Is(err, bincfgerr.ErrUnknownArch) {
		t.Fatalf("err = %v, want wrapping ErrUnknownArch", err)
	}
}

func TestListIsSorted(t *testing.T) {
	got := List()
	want := []string{ARMv5, AVR}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestAVRAndARMv5HaveDistinctWordSizes(t *testing.T) {
	avr, _ := Create(AVR)
	arm, _ := Create(ARMv5)
	if avr.WordSize() != 2 {
		t.Errorf("AVR WordSize() = %d, want 2", avr.WordSize())
	}
	if arm.WordSize() != 4 {
		t.Errorf("ARMv5 WordSize() = %d, want 4", arm.WordSize())
	}
}
