package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()
	want := map[string]bool{"serve": false, "export": false, "preview": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q missing", name)
		}
	}
}

func TestExportCommand_RequiresManifest(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"export"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Error("export without a manifest should fail")
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	os.WriteFile(good, []byte(`{
		"videoPath": "/videos/a.mp4",
		"videoTrimStart": 1,
		"videoTrimEnd": 9,
		"audioClips": [{"id": "a1", "name": "vo", "startTime": 2, "duration": 3, "blobBase64": "aGk="}]
	}`), 0644)

	req, err := loadManifest(good)
	if err != nil {
		t.Fatalf("loadManifest() error = %v", err)
	}
	if req.VideoPath != "/videos/a.mp4" || len(req.AudioClips) != 1 || *req.VideoTrimEnd != 9 {
		t.Errorf("manifest = %+v", req)
	}

	tests := map[string]string{
		"novideo.json": `{"audioClips": []}`,
		"broken.json":  `{"videoPath": `,
	}
	for name, body := range tests {
		p := filepath.Join(dir, name)
		os.WriteFile(p, []byte(body), 0644)
		if _, err := loadManifest(p); err == nil {
			t.Errorf("loadManifest(%s) should fail", name)
		}
	}

	if _, err := loadManifest(filepath.Join(dir, "missing.json")); err == nil || !strings.Contains(err.Error(), "read manifest") {
		t.Errorf("missing manifest error = %v", err)
	}
}

func TestExportCommand_RejectsBadOutputBeforeExport(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANGLE_DATA_DIR", dir)
	t.Setenv("ANGLE_CONFIG", "")
	manifest := filepath.Join(dir, "m.json")
	os.WriteFile(manifest, []byte(`{"videoPath": "/nowhere/a.mp4"}`), 0644)

	root := newRootCommand()
	root.SetArgs([]string{"export", manifest, "--out", filepath.Join(dir, "out.mov")})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), ".mp4") {
		t.Errorf("error = %v, want output path rejection", err)
	}
}
