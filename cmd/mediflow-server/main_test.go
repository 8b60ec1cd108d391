package main

import "testing"

func TestMigrateCmd_Subcommands(t *testing.T) {
	cmd := migrateCmd()
	want := map[string]bool{"up": false, "status": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing migrate subcommand %q", name)
		}
	}
}

func TestServeCmd(t *testing.T) {
	if serveCmd().Use != "serve" {
		t.Error("serve command misnamed")
	}
}
