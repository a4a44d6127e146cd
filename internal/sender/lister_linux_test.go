package sender

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/boob-sbcm/rsynk/internal/rsyncopts"
	"github.com/boob-sbcm/rsynk/internal/testlogger"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"
)

func TestListFilesSpecials(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "file"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := unix.Mkfifo(filepath.Join(tmp, "fifo"), 0o600); err != nil {
		t.Fatal(err)
	}
	src, err := NewRootSource(tmp)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	for _, tt := range []struct {
		name string
		opts *rsyncopts.Options
		want []string
	}{
		{
			name: "skipped",
			opts: rsyncopts.NewOptions(rsyncopts.Recurse),
			want: []string{".", "file"},
		},
		{
			name: "preserved",
			opts: rsyncopts.NewOptions(rsyncopts.Recurse, rsyncopts.PreserveSpecials),
			want: []string{".", "fifo", "file"},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			st := &Transfer{
				Logger: testlogger.New(t),
				Opts:   tt.opts,
				Source: src,
			}
			entries, err := st.ListFiles(".")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, paths(entries)); diff != "" {
				t.Errorf("ListFiles: diff (-want +got):\n%s", diff)
			}
			for _, f := range entries {
				if f.Path == "fifo" && f.Type != FIFO {
					t.Errorf("fifo listed as %v", f.Type)
				}
			}
		})
	}
}
