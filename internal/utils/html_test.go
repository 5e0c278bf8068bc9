package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "paragraphs and script",
			in:   "<html><body><p>Hello &amp; welcome</p><script>var x = 1;</script><p>Sale now on</p></body></html>",
			want: "Hello & welcome\nSale now on",
		},
		{"line breaks", "One<br/>Two<br>Three", "One\nTwo\nThree"},
		{"style dropped", "<style>.a{color:red}</style>Visible", "Visible"},
		{"table rows", "<table><tr><td>A</td></tr><tr><td>B</td></tr></table>", "A\nB"},
		{"whitespace collapsed", "<div>  spaced   out  </div>", "spaced out"},
		{"plain text passthrough", "no markup here", "no markup here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in))
		})
	}
}
