package testutil

import "testing"

// Given, When, Then and And nest subtests named after scenario clauses, so a
// single clause can be selected with -run 'Test/Given_.../When_...'. Each
// returns the t.Run result; a false Given lets the caller skip dependent steps.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return clause(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return clause(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return clause(t, "Then", desc, fn)
}

func And(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return clause(t, "And", desc, fn)
}

func clause(t *testing.T, keyword, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run(keyword+" "+desc, fn)
}
