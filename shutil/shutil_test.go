// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package shutil_test

import (
	"testing"

	"go.chromium.org/isolate/shutil"
)

func TestEscape(t *testing.T) {
	for _, c := range []struct {
		in, exp string
	}{
		{``, `''`},
		{` `, `' '`},
		{`\t`, `'\t'`},
		{`ab`, `ab`},
		{`a b`, `'a b'`},
		{`AZaz09@%_+=:,./-`, `AZaz09@%_+=:,./-`},
		{`a!b`, `'a!b'`},
		{`'`, `''"'"''`},
		{`=foo`, `'=foo'`},
		{`runtime's`, `'runtime'"'"'s'`},
	} {
		if s := shutil.Escape(c.in); s != c.exp {
			t.Errorf("Escape(%q) = %q; want %q", c.in, s, c.exp)
		}
	}
}

func TestEscapeSlice(t *testing.T) {
	if s, exp := shutil.EscapeSlice([]string{"a", "b c", ""}), `a 'b c' ''`; s != exp {
		t.Errorf("EscapeSlice = %q; want %q", s, exp)
	}
}

func TestCommandLine(t *testing.T) {
	for _, c := range []struct {
		env  []string
		name string
		args []string
		exp  string
	}{
		{nil, "/usr/bin/isolate_runtime", nil, `/usr/bin/isolate_runtime`},
		{[]string{"A=1", "B=x y"}, "/bin/rt", []string{"-v"}, `A=1 B='x y' /bin/rt -v`},
		{[]string{"A="}, "rt", nil, `A='' rt`},
		{[]string{"noequals", "1BAD=z"}, "rt", nil, `noequals 1BAD=z rt`},
		{[]string{"2 BAD=z"}, "my rt", nil, `'2 BAD=z' 'my rt'`},
	} {
		if s := shutil.CommandLine(c.env, c.name, c.args...); s != c.exp {
			t.Errorf("CommandLine(%q, %q, %q) = %q; want %q", c.env, c.name, c.args, s, c.exp)
		}
	}
}
