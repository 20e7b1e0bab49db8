package procfs

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func writeStat(t *testing.T, root string, pid int, line string) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(pid))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stat"), []byte(line+"\n"), 0o644); err != nil {
		t.Fatalf("write stat: %v", err)
	}
}

func TestReadStatNormalComm(t *testing.T) {
	root := t.TempDir()
	writeStat(t, root, 1, "1 (bash) S 0 1 1 0 -1 4194304 100 0 0 0 12 3 0 0 20 0 1 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0")

	st, err := ReadStat(root, 1)
	if err != nil {
		t.Fatalf("ReadStat: %v", err)
	}
	if st.Comm != "bash" {
		t.Errorf("Comm = %q, want %q", st.Comm, "bash")
	}
	if st.State != 'S' {
		t.Errorf("State = %q, want %q", st.State, 'S')
	}
	if st.UTime != 12 || st.STime != 3 {
		t.Errorf("UTime/STime = %d/%d, want 12/3", st.UTime, st.STime)
	}
}

// TestReadStatWeirdComm proves the last-")" strategy mandated by the
// parser robustness scenario: comm itself contains parentheses, spaces,
// and a close-paren right before the real terminator.
func TestReadStatWeirdComm(t *testing.T) {
	root := t.TempDir()
	line := "7 (weird )name)(x)) R 1 1 1 0 -1 4194304 0 0 0 0 55 6 0 0 20 0 1 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0"
	writeStat(t, root, 7, line)

	st, err := ReadStat(root, 7)
	if err != nil {
		t.Fatalf("ReadStat: %v", err)
	}
	if st.Comm != "weird )name)(x)" {
		t.Errorf("Comm = %q, want %q", st.Comm, "weird )name)(x)")
	}
	if st.UTime != 55 || st.STime != 6 {
		t.Errorf("UTime/STime = %d/%d, want 55/6", st.UTime, st.STime)
	}
}

func TestReadStatMalformed(t *testing.T) {
	root := t.TempDir()
	writeStat(t, root, 9, "9 no-parens-here S 0 1 1")

	if _, err := ReadStat(root, 9); err == nil {
		t.Fatal("expected error for malformed stat line, got nil")
	}
}

func TestReadStatTruncated(t *testing.T) {
	root := t.TempDir()
	writeStat(t, root, 3, "3 (x) S 0 1")

	if _, err := ReadStat(root, 3); err == nil {
		t.Fatal("expected error for truncated stat line, got nil")
	}
}

func TestScanPIDs(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"1", "42", "self", "cpuinfo", "meminfo"} {
		if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
	}
	// cpuinfo/meminfo are directories here only to prove ScanPIDs
	// filters on numeric basenames, not on any other property.

	pids, err := ScanPIDs(root)
	if err != nil {
		t.Fatalf("ScanPIDs: %v", err)
	}
	got := map[int]bool{}
	for _, p := range pids {
		got[p] = true
	}
	if !got[1] || !got[42] || len(got) != 2 {
		t.Errorf("ScanPIDs = %v, want exactly {1, 42}", pids)
	}
}
