package commands

import "testing"

// Flag defaults are latched when the command is constructed, which happens
// before config.Load projects YAML values into the environment. These tests
// pin the RunE-time resolution: env vars set after construction still win
// over untouched flag defaults, while an explicitly set flag beats both.

func Test_FlagOrEnvInt_EnvSetAfterConstruction(t *testing.T) {
	cmd := NewIngestCmd()
	t.Setenv("INGEST_CHUNK_SIZE", "555")

	def, err := cmd.Flags().GetInt("chunk-size")
	if err != nil {
		t.Fatalf("GetInt: %v", err)
	}
	if def != 1000 {
		t.Fatalf("chunk-size flag default = %d, want 1000", def)
	}
	if got := flagOrEnvInt(cmd, "chunk-size", "INGEST_CHUNK_SIZE", def); got != 555 {
		t.Errorf("resolved chunk size = %d, want env value 555", got)
	}
}

func Test_FlagOrEnvInt_ExplicitFlagBeatsEnv(t *testing.T) {
	cmd := NewIngestCmd()
	t.Setenv("INGEST_CHUNK_SIZE", "555")

	if err := cmd.Flags().Set("chunk-size", "750"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := cmd.Flags().GetInt("chunk-size")
	if err != nil {
		t.Fatalf("GetInt: %v", err)
	}
	if got := flagOrEnvInt(cmd, "chunk-size", "INGEST_CHUNK_SIZE", v); got != 750 {
		t.Errorf("resolved chunk size = %d, want explicit flag value 750", got)
	}
}

func Test_FlagOrEnv_ServeBindAddress(t *testing.T) {
	cmd := NewServeCmd()
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("SERVER_PORT", "9090")

	host, err := cmd.Flags().GetString("host")
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if got := flagOrEnvStr(cmd, "host", "SERVER_HOST", host); got != "0.0.0.0" {
		t.Errorf("resolved host = %q, want env value 0.0.0.0", got)
	}

	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		t.Fatalf("GetInt: %v", err)
	}
	if got := flagOrEnvInt(cmd, "port", "SERVER_PORT", port); got != 9090 {
		t.Errorf("resolved port = %d, want env value 9090", got)
	}
}
