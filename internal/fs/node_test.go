package fs

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/safedep/blpfs/usefulerror"
	"github.com/stretchr/testify/assert"
)

func TestErrno(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{
			name: "nil error",
			err:  nil,
			want: 0,
		},
		{
			name: "policy denial maps to EACCES",
			err:  usefulerror.PolicyDenied("no-read-up"),
			want: syscall.EACCES,
		},
		{
			name: "not found keeps its kind",
			err:  usefulerror.Useful().WithCode(usefulerror.ErrCodeNotFound).Msg("gone"),
			want: syscall.ENOENT,
		},
		{
			name: "is a directory keeps its kind",
			err:  usefulerror.Useful().WithCode(usefulerror.ErrCodeIsADirectory).Msg("dir"),
			want: syscall.EISDIR,
		},
		{
			name: "not a directory keeps its kind",
			err:  usefulerror.Useful().WithCode(usefulerror.ErrCodeNotADirectory).Msg("file"),
			want: syscall.ENOTDIR,
		},
		{
			name: "io error maps to EIO",
			err:  usefulerror.Useful().WithCode(usefulerror.ErrCodeIOError).Msg("disk"),
			want: syscall.EIO,
		},
		{
			name: "raw errno passes through",
			err:  syscall.ENOSPC,
			want: syscall.ENOSPC,
		},
		{
			name: "unknown error maps to EIO",
			err:  fmt.Errorf("mystery"),
			want: syscall.EIO,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, errno(test.err))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		escaped bool
	}{
		{input: "/", want: ""},
		{input: "", want: ""},
		{input: "/secret/memo", want: "secret/memo"},
		{input: "secret/memo", want: "secret/memo"},
		{input: "/a/./b", want: "a/b"},
		{input: "/a/../b", want: "b"},
		{input: "/a//b", want: "a/b"},
		{input: "..", escaped: true},
		{input: "../x", escaped: true},
		{input: "a/../../x", escaped: true},
		{input: "/..", escaped: true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, escaped := normalize(test.input)
			assert.Equal(t, test.escaped, escaped)
			if !escaped {
				assert.Equal(t, test.want, got)
			}
		})
	}
}
