package cli

import (
	"io"
	"strings"
	"testing"

	"github.com/debstat/debstat/pkg/archive"
	"github.com/debstat/debstat/pkg/render"
)

func TestRenderOptionsCharset(t *testing.T) {
	tests := []struct {
		charset string
		want    render.Charset
		wantErr bool
	}{
		{"utf8", render.CharsetUTF8, false},
		{"", render.CharsetUTF8, false},
		{"ascii", render.CharsetASCII, false},
		{"latin1", 0, true},
	}
	for _, tc := range tests {
		ropts, err := renderOptions(treeOptions{charset: tc.charset, color: "never", filter: "all"})
		if tc.wantErr {
			if err == nil {
				t.Errorf("charset %q: expected error", tc.charset)
			}
			continue
		}
		if err != nil {
			t.Errorf("charset %q: %v", tc.charset, err)
			continue
		}
		if ropts.Charset != tc.want {
			t.Errorf("charset %q: got %v, want %v", tc.charset, ropts.Charset, tc.want)
		}
	}
}

func TestRenderOptionsPrefix(t *testing.T) {
	ropts, err := renderOptions(treeOptions{charset: "utf8", color: "never", filter: "all"})
	if err != nil {
		t.Fatal(err)
	}
	if ropts.Prefix != render.PrefixIndent {
		t.Errorf("default prefix = %v, want PrefixIndent", ropts.Prefix)
	}

	ropts, err = renderOptions(treeOptions{charset: "utf8", color: "never", filter: "all", prefixDepth: true})
	if err != nil {
		t.Fatal(err)
	}
	if ropts.Prefix != render.PrefixDepth {
		t.Errorf("prefix = %v, want PrefixDepth", ropts.Prefix)
	}

	// --no-indent wins over --prefix-depth.
	ropts, err = renderOptions(treeOptions{charset: "utf8", color: "never", filter: "all", prefixDepth: true, noIndent: true})
	if err != nil {
		t.Fatal(err)
	}
	if ropts.Prefix != render.PrefixNone {
		t.Errorf("prefix = %v, want PrefixNone", ropts.Prefix)
	}
}

func TestRenderOptionsColor(t *testing.T) {
	ropts, err := renderOptions(treeOptions{charset: "utf8", color: "always", filter: "all"})
	if err != nil {
		t.Fatal(err)
	}
	if !ropts.Color {
		t.Error("color=always should enable color")
	}

	ropts, err = renderOptions(treeOptions{charset: "utf8", color: "never", filter: "all"})
	if err != nil {
		t.Fatal(err)
	}
	if ropts.Color {
		t.Error("color=never should disable color")
	}

	if _, err := renderOptions(treeOptions{charset: "utf8", color: "sometimes", filter: "all"}); err == nil {
		t.Error("expected error for unknown color mode")
	}
}

func TestRenderOptionsFilter(t *testing.T) {
	for _, filter := range []string{"all", "missing"} {
		if _, err := renderOptions(treeOptions{charset: "utf8", color: "never", filter: filter}); err != nil {
			t.Errorf("filter %q: %v", filter, err)
		}
	}
	if _, err := renderOptions(treeOptions{charset: "utf8", color: "never", filter: "outdated"}); err == nil {
		t.Error("expected error for unknown filter")
	}
}

func TestSuiteResolution(t *testing.T) {
	c := &CLI{Logger: newLogger(io.Discard, LogInfo)}

	if got := c.suite(treeOptions{}); got != archive.DefaultSuite {
		t.Errorf("suite = %q, want default %q", got, archive.DefaultSuite)
	}

	c.config.Suite = "testing"
	if got := c.suite(treeOptions{}); got != "testing" {
		t.Errorf("suite = %q, want config value", got)
	}

	if got := c.suite(treeOptions{suite: "unstable"}); got != "unstable" {
		t.Errorf("suite = %q, want flag value", got)
	}
}

func TestConcurrencyResolution(t *testing.T) {
	c := &CLI{Logger: newLogger(io.Discard, LogInfo)}

	if got := c.concurrency(treeOptions{}); got != defaultConcurrency {
		t.Errorf("concurrency = %d, want default %d", got, defaultConcurrency)
	}

	c.config.Concurrency = 4
	if got := c.concurrency(treeOptions{}); got != 4 {
		t.Errorf("concurrency = %d, want config value 4", got)
	}

	if got := c.concurrency(treeOptions{concurrency: 16}); got != 16 {
		t.Errorf("concurrency = %d, want flag value 16", got)
	}
}

func TestOracleSelection(t *testing.T) {
	c := &CLI{Logger: newLogger(io.Discard, LogInfo)}

	if _, ok := c.oracle(treeOptions{offline: true}).(archive.Offline); !ok {
		t.Error("offline mode should select the offline oracle")
	}
	if _, ok := c.oracle(treeOptions{}).(*archive.Client); !ok {
		t.Error("online mode should select the archive client")
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	c := &CLI{Logger: newLogger(io.Discard, LogInfo)}
	root := c.RootCommand()

	want := map[string]bool{"tree": false, "graph": false, "completion": false}
	for _, cmd := range root.Commands() {
		name := strings.Fields(cmd.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("root command is missing subcommand %q", name)
		}
	}
}
