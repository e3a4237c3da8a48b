package engine

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		line string
		want LineKind
	}{
		{
			name: "plain line",
			line: "[BIOME] loading configuration",
			want: PlainLine,
		},
		{
			name: "stage sentinel",
			line: `STAGE_JSON: {"id":"load_weights","label":"[1/4] Fetching model weights","percent":5}`,
			want: ProgressLine,
		},
		{
			name: "stage sentinel with prefix noise",
			line: `2026-08-29 10:00:01 STAGE_JSON: {"id":"warmup","label":"[4/4] Warming up","percent":90}`,
			want: ProgressLine,
		},
		{
			name: "malformed stage payload degrades to plain",
			line: "STAGE_JSON: {not json at all",
			want: PlainLine,
		},
		{
			name: "stage payload without id degrades to plain",
			line: `STAGE_JSON: {"label":"mystery","percent":50}`,
			want: PlainLine,
		},
		{
			name: "ready banner",
			line: "[BIOME] SERVER READY",
			want: ReadySignal,
		},
		{
			name: "uvicorn ready line",
			line: "INFO:     Uvicorn running on http://127.0.0.1:7987 (Press CTRL+C to quit)",
			want: ReadySignal,
		},
		{
			name: "empty line",
			line: "",
			want: PlainLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.line)

			if got.Kind != tt.want {
				t.Errorf("Classify(%q).Kind = %v, want %v", tt.line, got.Kind, tt.want)
			}

			if got.Line != tt.line {
				t.Errorf("Classify(%q).Line = %q, want original line", tt.line, got.Line)
			}
		})
	}
}

func TestClassify_StageFields(t *testing.T) {
	line := `STAGE_JSON: {"id":"compile","label":"[3/4] Compiling inference graph","percent":70}`

	got := Classify(line)

	if got.Kind != ProgressLine {
		t.Fatalf("Kind = %v, want ProgressLine", got.Kind)
	}

	if got.Stage.ID != "compile" {
		t.Errorf("Stage.ID = %q, want %q", got.Stage.ID, "compile")
	}

	if got.Stage.Label != "[3/4] Compiling inference graph" {
		t.Errorf("Stage.Label = %q", got.Stage.Label)
	}

	if got.Stage.Percent != 70 {
		t.Errorf("Stage.Percent = %v, want 70", got.Stage.Percent)
	}
}

func TestClassify_PercentClamping(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    float64
	}{
		{"over 100 clamps down", `{"id":"x","percent":145}`, 100},
		{"negative clamps to zero", `{"id":"x","percent":-3}`, 0},
		{"fractional rounds", `{"id":"x","percent":33.4}`, 33},
		{"rounds up at half", `{"id":"x","percent":66.5}`, 67},
		{"zero stays zero", `{"id":"x","percent":0}`, 0},
		{"hundred stays hundred", `{"id":"x","percent":100}`, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("STAGE_JSON: " + tt.payload)

			if got.Kind != ProgressLine {
				t.Fatalf("Kind = %v, want ProgressLine", got.Kind)
			}

			if got.Stage.Percent != tt.want {
				t.Errorf("Percent = %v, want %v", got.Stage.Percent, tt.want)
			}
		})
	}
}
