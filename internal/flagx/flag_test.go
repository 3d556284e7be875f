package flagx

import (
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		valueFlags []string
		boolFlags  []string
		want       []string
	}{
		{
			name:       "short flag with separate value",
			args:       []string{"-c", "conf.json", "-a", "localhost"},
			valueFlags: []string{"-c", "--config"},
			want:       []string{"-c", "conf.json"},
		},
		{
			name:       "long flag with equals",
			args:       []string{"--config=alt.json", "-a", "localhost"},
			valueFlags: []string{"-c", "--config"},
			want:       []string{"--config=alt.json"},
		},
		{
			name:       "unknown flags ignored",
			args:       []string{"-x", "1", "--y=2", "positional"},
			valueFlags: []string{"-c", "--config"},
			want:       []string{},
		},
		{
			name:       "flag without value at end is kept as-is",
			args:       []string{"-c"},
			valueFlags: []string{"-c"},
			want:       []string{"-c"},
		},
		{
			name:       "flag followed by another flag (no value)",
			args:       []string{"-c", "-notvalue"},
			valueFlags: []string{"-c"},
			want:       []string{"-c"},
		},
		{
			name:       "bool flag does not swallow the file path",
			args:       []string{"-v", "report.pdf", "-a", "http://gw"},
			valueFlags: []string{"-a"},
			boolFlags:  []string{"-v"},
			want:       []string{"-v", "-a", "http://gw"},
		},
		{
			name:      "bool flag with explicit value",
			args:      []string{"-v=false"},
			boolFlags: []string{"-v"},
			want:      []string{"-v=false"},
		},
		{
			name:       "repeated allowed flag is preserved in order",
			args:       []string{"-c", "one.json", "-c", "two.json"},
			valueFlags: []string{"-c"},
			want:       []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:       "empty args",
			args:       []string{},
			valueFlags: []string{"-c"},
			want:       []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.valueFlags, tt.boolFlags...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestPositional(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "file after flags", args: []string{"-a", "http://gw", "-v", "book.pdf"}, want: []string{"book.pdf"}},
		{name: "equals form skipped", args: []string{"--token=abc", "a.zip"}, want: []string{"a.zip"}},
		{name: "double dash", args: []string{"-a", "x", "--", "-weird.pdf"}, want: []string{"-weird.pdf"}},
		{name: "none", args: []string{"-a", "x"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Positional(tt.args, []string{"-a", "-t"}))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short -c with value", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", "/path/short.json"}
		assert.Equal(t, "/path/short.json", ConfigFileFlag())
	})

	t.Run("long -config with value", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", "/path/long.json"}
		assert.Equal(t, "/path/long.json", ConfigFileFlag())
	})

	t.Run("unknown flags are ignored", func(t *testing.T) {
		os.Args = []string{"testbin", "-x", "1", "-y", "2"}
		assert.Empty(t, ConfigFileFlag())
	})

	t.Run("multiple flags, last wins", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", "/path/1.json", "-config", "/path/2.json"}
		assert.Equal(t, "/path/2.json", ConfigFileFlag())
	})
}
