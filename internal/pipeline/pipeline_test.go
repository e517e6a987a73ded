package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/regimelab/regimebatch/internal/config"
	"github.com/regimelab/regimebatch/internal/logging"
)

// --- Discover tests ---

func TestDiscover_SelectsDataFilePattern(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "xy_1.dat")
	touch(t, dir, "xy_2.dat")
	touch(t, dir, "notes.txt")
	touch(t, dir, "xy_abc.dat")

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{"xy_1.dat", "xy_2.dat"}
	got := basenames(files)
	if !sliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDiscover_MatchesAnyExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "xy_7.txt")
	touch(t, dir, "xy_9")
	touch(t, dir, "xy_12.dat.bak")
	touch(t, dir, "Xy_1.dat")
	touch(t, dir, "xyz_1.dat")
	touch(t, dir, "plot_1.png")

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{"xy_12.dat.bak", "xy_7.txt", "xy_9"}
	got := basenames(files)
	if !sliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDiscover_RecursiveAndSorted(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "run_b/xy_2.dat")
	writeSeries(t, dir, "run_a/xy_3.dat")
	writeSeries(t, dir, "xy_1.dat")

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}
	for i := 1; i < len(files); i++ {
		if files[i] < files[i-1] {
			t.Errorf("not sorted: %q before %q", files[i-1], files[i])
		}
	}
}

func TestDiscover_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %d files, want 0", len(files))
	}
}

func TestDiscover_MissingRoot(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Discover on a missing root should fail")
	}
}

// --- Run integration tests (fake tool via sh) ---

func TestRun_PlotsEveryTimeSeries(t *testing.T) {
	script, argsLog := writeFakeTool(t, "")
	root := t.TempDir()
	writeSeries(t, root, "xy_1.dat")
	writeSeries(t, root, "sub/xy_2.dat")

	cfg := testConfig(root, script)
	log := testLogger(t, &cfg)

	stats, err := Run(context.Background(), &cfg, log, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Total != 2 || stats.Plotted != 2 || stats.Skipped != 0 || stats.Failed != 0 {
		t.Errorf("stats: %+v", stats)
	}
	if stats.PlotBytes != 6 {
		t.Errorf("PlotBytes: got %d, want 6 (two 3-byte plots)", stats.PlotBytes)
	}

	// Lexicographic order: sub/xy_2.dat sorts before xy_1.dat.
	want := []string{
		filepath.Join(root, "sub", "xy_2.dat") + " --plotname " + filepath.Join(root, "sub", "plot_2.png"),
		filepath.Join(root, "xy_1.dat") + " --plotname " + filepath.Join(root, "plot_1.png"),
	}
	got := readLines(t, argsLog)
	if !sliceEqual(got, want) {
		t.Errorf("invocations:\ngot  %v\nwant %v", got, want)
	}

	for _, plot := range []string{filepath.Join(root, "plot_1.png"), filepath.Join(root, "sub", "plot_2.png")} {
		if _, err := os.Stat(plot); err != nil {
			t.Errorf("plot not written: %s", plot)
		}
	}
}

func TestRun_FailureDoesNotAbortBatch(t *testing.T) {
	script, argsLog := writeFakeTool(t, `case "$1" in
  *xy_2*) exit 3 ;;
esac
printf 'png' > "$3"
`)
	root := t.TempDir()
	writeSeries(t, root, "xy_1.dat")
	writeSeries(t, root, "xy_2.dat")
	writeSeries(t, root, "xy_3.dat")

	cfg := testConfig(root, script)
	log := testLogger(t, &cfg)

	stats, err := Run(context.Background(), &cfg, log, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Plotted != 2 || stats.Failed != 1 {
		t.Errorf("stats: %+v", stats)
	}
	if got := readLines(t, argsLog); len(got) != 3 {
		t.Errorf("got %d invocations, want 3 (failure must not abort)", len(got))
	}
	if len(stats.Failures) != 1 {
		t.Fatalf("Failures: %+v", stats.Failures)
	}
	f := stats.Failures[0]
	if !strings.Contains(f.Input, "xy_2.dat") || f.Reason != "tool exit 3" {
		t.Errorf("failure record: %+v", f)
	}
}

func TestRun_RepeatRunsAreIdentical(t *testing.T) {
	script, argsLog := writeFakeTool(t, "")
	root := t.TempDir()
	writeSeries(t, root, "xy_1.dat")
	writeSeries(t, root, "xy_2.dat")

	cfg := testConfig(root, script)
	log := testLogger(t, &cfg)

	for i := 0; i < 2; i++ {
		stats, err := Run(context.Background(), &cfg, log, nil)
		if err != nil {
			t.Fatalf("Run %d: %v", i+1, err)
		}
		if stats.Plotted != 2 {
			t.Errorf("run %d: stats %+v", i+1, stats)
		}
	}

	lines := readLines(t, argsLog)
	if len(lines) != 4 {
		t.Fatalf("got %d invocations, want 4", len(lines))
	}
	if !sliceEqual(lines[:2], lines[2:]) {
		t.Errorf("second run differs:\nfirst  %v\nsecond %v", lines[:2], lines[2:])
	}
}

func TestRun_DryRunInvokesNothing(t *testing.T) {
	script, argsLog := writeFakeTool(t, "")
	root := t.TempDir()
	writeSeries(t, root, "xy_1.dat")
	writeSeries(t, root, "xy_2.dat")

	cfg := testConfig(root, script)
	cfg.DryRun = true
	log := testLogger(t, &cfg)

	stats, err := Run(context.Background(), &cfg, log, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Plotted != 2 || stats.Failed != 0 {
		t.Errorf("stats: %+v", stats)
	}
	if got := readLines(t, argsLog); len(got) != 0 {
		t.Errorf("dry run invoked the tool: %v", got)
	}
	if _, err := os.Stat(filepath.Join(root, "plot_1.png")); err == nil {
		t.Error("dry run wrote a plot file")
	}
}

func TestRun_SkipExisting(t *testing.T) {
	script, argsLog := writeFakeTool(t, "")
	root := t.TempDir()
	writeSeries(t, root, "xy_1.dat")
	writeSeries(t, root, "xy_2.dat")
	touch(t, root, "plot_1.png")

	cfg := testConfig(root, script)
	cfg.SkipExisting = true
	log := testLogger(t, &cfg)

	stats, err := Run(context.Background(), &cfg, log, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Plotted != 1 || stats.Skipped != 1 {
		t.Errorf("stats: %+v", stats)
	}
	got := readLines(t, argsLog)
	if len(got) != 1 || !strings.Contains(got[0], "xy_2.dat") {
		t.Errorf("invocations: %v", got)
	}
}

func TestRun_FailFastStopsEarly(t *testing.T) {
	script, argsLog := writeFakeTool(t, `case "$1" in
  *xy_1*) exit 3 ;;
esac
printf 'png' > "$3"
`)
	root := t.TempDir()
	writeSeries(t, root, "xy_1.dat")
	writeSeries(t, root, "xy_2.dat")
	writeSeries(t, root, "xy_3.dat")

	cfg := testConfig(root, script)
	cfg.FailFast = true
	log := testLogger(t, &cfg)

	stats, err := Run(context.Background(), &cfg, log, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Failed != 1 || stats.Plotted != 0 || stats.Current != 1 {
		t.Errorf("stats: %+v", stats)
	}
	if got := readLines(t, argsLog); len(got) != 1 {
		t.Errorf("got %d invocations, want 1", len(got))
	}
}

func TestRun_ParallelJobs(t *testing.T) {
	script, argsLog := writeFakeTool(t, "")
	root := t.TempDir()
	names := []string{"xy_1.dat", "xy_2.dat", "xy_3.dat", "a/xy_4.dat", "a/xy_5.dat", "b/xy_6.dat"}
	for _, name := range names {
		writeSeries(t, root, name)
	}

	cfg := testConfig(root, script)
	cfg.Jobs = 3
	log := testLogger(t, &cfg)

	stats, err := Run(context.Background(), &cfg, log, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Total != 6 || stats.Plotted != 6 || stats.Failed != 0 || stats.Current != 6 {
		t.Errorf("stats: %+v", stats)
	}
	if stats.PlotBytes != 18 {
		t.Errorf("PlotBytes: got %d, want 18", stats.PlotBytes)
	}

	got := readLines(t, argsLog)
	sort.Strings(got)
	var want []string
	for _, name := range names {
		in := filepath.Join(root, name)
		out := filepath.Join(root, filepath.Dir(name), "plot_"+strings.TrimPrefix(filepath.Base(name), "xy_"))
		out = strings.Replace(out, ".dat", ".png", 1)
		want = append(want, in+" --plotname "+out)
	}
	sort.Strings(want)
	if !sliceEqual(got, want) {
		t.Errorf("invocations:\ngot  %v\nwant %v", got, want)
	}
}

func TestRun_DuplicateOutputWarns(t *testing.T) {
	script, _ := writeFakeTool(t, "")
	root := t.TempDir()
	writeSeries(t, root, "xy_1.dat")
	writeSeries(t, root, "xy_1.png") // derives the same plot_1.png

	cfg := testConfig(root, script)
	cfg.LogFile = filepath.Join(t.TempDir(), "run.log")
	log := testLogger(t, &cfg)

	stats, err := Run(context.Background(), &cfg, log, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Plotted != 2 {
		t.Errorf("stats: %+v (both duplicates should still run)", stats)
	}

	b, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "already produced from") {
		t.Error("duplicate derived output was not warned about")
	}
}

func TestRun_MissingRootFails(t *testing.T) {
	script, _ := writeFakeTool(t, "")
	cfg := testConfig(filepath.Join(t.TempDir(), "nope"), script)
	log := testLogger(t, &cfg)

	stats, err := Run(context.Background(), &cfg, log, nil)
	if err == nil {
		t.Error("Run with a missing root should fail")
	}
	if stats.Total != 0 {
		t.Errorf("stats: %+v", stats)
	}
}

func TestRun_EmitsEvents(t *testing.T) {
	script, _ := writeFakeTool(t, "")
	root := t.TempDir()
	writeSeries(t, root, "xy_1.dat")
	writeSeries(t, root, "xy_2.dat")

	cfg := testConfig(root, script)
	log := testLogger(t, &cfg)

	events := make(chan Event, 16)
	collected := make(chan []Event)
	go func() {
		var got []Event
		for ev := range events {
			got = append(got, ev)
			if ev.Kind == EventBatchDone {
				break
			}
		}
		collected <- got
	}()

	if _, err := Run(context.Background(), &cfg, log, events); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := <-collected

	if got[0].Kind != EventStart || got[0].Total != 2 {
		t.Errorf("first event: %+v", got[0])
	}
	last := got[len(got)-1]
	if last.Kind != EventBatchDone || last.Stats.Plotted != 2 {
		t.Errorf("last event: %+v", last)
	}

	var starts, dones int
	for _, ev := range got {
		switch ev.Kind {
		case EventItemStart:
			starts++
		case EventItemDone:
			dones++
			if ev.Status != StatusPlotted || ev.Output == "" {
				t.Errorf("item done event: %+v", ev)
			}
		}
	}
	if starts != 2 || dones != 2 {
		t.Errorf("got %d item starts, %d item dones, want 2 and 2", starts, dones)
	}
}

// --- Scan tests ---

func TestScan_InventoriesSeries(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"xy_1.dat", "xy_2.dat", "xy_3.dat", "xy_4.dat", "xy_5.dat"} {
		writeSeries(t, root, name)
	}

	cfg := testConfig(root, "unused.py")
	cfg.LogFile = filepath.Join(t.TempDir(), "scan.log")
	log := testLogger(t, &cfg)

	if err := Scan(context.Background(), &cfg, log); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	b, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, "Scanned 5 data files") {
		t.Errorf("missing scan count in:\n%s", out)
	}
	// All five files carry identical headers and row counts.
	if !strings.Contains(out, "5 with coefficients, 5 with a shift marker") {
		t.Errorf("missing header tally in:\n%s", out)
	}
	if !strings.Contains(out, "No outliers detected") {
		t.Errorf("equal row counts should yield no outliers:\n%s", out)
	}
}

func TestScan_MissingRootFails(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "nope"), "unused.py")
	log := testLogger(t, &cfg)
	if err := Scan(context.Background(), &cfg, log); err == nil {
		t.Error("Scan with a missing root should fail")
	}
}

func TestScan_EmptyRootSucceeds(t *testing.T) {
	cfg := testConfig(t.TempDir(), "unused.py")
	log := testLogger(t, &cfg)
	if err := Scan(context.Background(), &cfg, log); err != nil {
		t.Errorf("Scan: %v", err)
	}
}

// --- Outlier classification tests ---

func TestComputeStats_Classify(t *testing.T) {
	bounds := computeStats([]float64{90, 100, 110, 120, 130, 400})
	if !bounds.valid {
		t.Fatal("bounds should be valid")
	}

	cases := []struct {
		v    float64
		want string
	}{
		{110, ""},
		{150, ""},
		{170, "outlier"},
		{400, "extreme"},
		{50, "outlier"},
		{10, "extreme"},
		{0, ""},
	}
	for _, tc := range cases {
		if got := bounds.classify(tc.v); got != tc.want {
			t.Errorf("classify(%v): got %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestComputeStats_TooFewValues(t *testing.T) {
	bounds := computeStats([]float64{1, 2, 3})
	if bounds.valid {
		t.Error("fewer than 4 values should not produce valid bounds")
	}
	if got := bounds.classify(1000); got != "" {
		t.Errorf("classify without valid bounds: got %q, want \"\"", got)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	cases := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{25, 17.5},
		{50, 25},
		{100, 40},
	}
	for _, tc := range cases {
		if got := percentile(sorted, tc.p); got != tc.want {
			t.Errorf("percentile(%v): got %v, want %v", tc.p, got, tc.want)
		}
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("percentile(nil): got %v, want 0", got)
	}
}

// --- Helpers ---

// sampleSeries mirrors the generator's format: coefficient and shift headers
// followed by whitespace-separated minute/value rows.
const sampleSeries = "# a1 = 0.5, b1 = 0.1, a2 = -0.2, b2 = 0.3\n" +
	"# Regime shift at minute 2\n" +
	"1 10.0\n2 10.2\n3 9.8\n4 5.1\n"

func writeSeries(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(sampleSeries), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}

// writeFakeTool writes a shell script that stands in for the analysis tool.
// It appends its arguments to the returned log and then runs tail; the
// default tail writes a 3-byte plot to the --plotname argument ($3).
// Tests that need it are skipped where sh is unavailable.
func writeFakeTool(t *testing.T, tail string) (script, argsLog string) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	argsLog = filepath.Join(dir, "args.log")
	if tail == "" {
		tail = "printf 'png' > \"$3\"\n"
	}
	script = filepath.Join(dir, "fake_tool.sh")
	content := "#!/bin/sh\necho \"$@\" >> '" + argsLog + "'\n" + tail
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}
	return script, argsLog
}

func testConfig(root, script string) config.Config {
	cfg := config.DefaultConfig()
	cfg.Root = root
	cfg.Python = "sh"
	cfg.Script = script
	cfg.ColorMode = config.ColorNever
	cfg.ShowToolOutput = false
	return cfg
}

func testLogger(t *testing.T, cfg *config.Config) *logging.Logger {
	t.Helper()
	log, err := logging.NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read %s: %v", path, err)
	}
	var lines []string
	for _, l := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func basenames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
