package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name string
		path string
		want Sensitivity
	}{
		{
			name: "unlabeled path is unclassified",
			path: "/docs/readme.txt",
			want: Unclassified,
		},
		{
			name: "empty path is unclassified",
			path: "",
			want: Unclassified,
		},
		{
			name: "root is unclassified",
			path: "/",
			want: Unclassified,
		},
		{
			name: "secret directory",
			path: "/secret/memo",
			want: Secret,
		},
		{
			name: "top secret directory",
			path: "/top_secret/plans",
			want: TopSecret,
		},
		{
			name: "confidential directory",
			path: "/confidential/report",
			want: Confidential,
		},
		{
			name: "prefix form labels the segment",
			path: "/secret_plans/doc",
			want: Secret,
		},
		{
			name: "highest label wins over deeper lower label",
			path: "/top_secret/secret/file",
			want: TopSecret,
		},
		{
			name: "highest label wins regardless of depth order",
			path: "/secret/top_secret/file",
			want: TopSecret,
		},
		{
			name: "case insensitive",
			path: "/SECRET/Memo",
			want: Secret,
		},
		{
			name: "relative segments are collapsed before matching",
			path: "/unclassified/../secret/memo",
			want: Secret,
		},
		{
			name: "label token inside a segment does not match",
			path: "/unclassified/topsecret_legacy.txt",
			want: Unclassified,
		},
		{
			name: "top_secret segment does not also match secret",
			path: "/top_secret/file",
			want: TopSecret,
		},
		{
			name: "suffix use of token does not match",
			path: "/my_secret/file",
			want: Unclassified,
		},
		{
			name: "labeled file name",
			path: "/docs/secret_notes.txt",
			want: Secret,
		},
		{
			name: "backing path prefix is irrelevant",
			path: "/var/data/backing/secret/memo",
			want: Secret,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, Infer(test.path))
		})
	}
}

func TestInferIsTotal(t *testing.T) {
	// Pathological inputs must still resolve to exactly one level.
	for _, p := range []string{"", ".", "..", "//", "\\", "a//b", "../../..", "/..", "...."} {
		got := Infer(p)
		assert.GreaterOrEqual(t, got, Unclassified)
		assert.LessOrEqual(t, got, TopSecret)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Sensitivity
		wantErr bool
	}{
		{input: "UNCLASSIFIED", want: Unclassified},
		{input: "CONFIDENTIAL", want: Confidential},
		{input: "SECRET", want: Secret},
		{input: "TOP_SECRET", want: TopSecret},
		{input: "top_secret", want: TopSecret},
		{input: " secret ", want: Secret},
		{input: "PUBLIC", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, err := Parse(test.input)
			if test.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestOrdering(t *testing.T) {
	assert.True(t, Unclassified < Confidential)
	assert.True(t, Confidential < Secret)
	assert.True(t, Secret < TopSecret)
}

func TestString(t *testing.T) {
	assert.Equal(t, "TOP_SECRET", TopSecret.String())
	assert.Equal(t, "UNCLASSIFIED", Sensitivity(-1).String())
	assert.Equal(t, "UNCLASSIFIED", Sensitivity(99).String())
}
