package harness

import (
	"strings"

	"github.com/roach88/cty/cty"
)

// checkCase compares what a case produced against its expectations and
// records every mismatch on cr.
func checkCase(c *Case, out outcome, cr *CaseResult) {
	want := c.expect()
	if cr.Outcome != want {
		switch cr.Outcome {
		case ExpectError:
			cr.fail("expected %s, got error: %s", want, cr.Error)
		case ExpectContained:
			cr.fail("expected %s, got contained (%s at %q)", want, cr.StopReason, out.stats.StopPath.String())
		default:
			cr.fail("expected %s, got %s", want, cr.Outcome)
		}
		return
	}

	switch want {
	case ExpectError:
		if c.ErrorContains != "" && !strings.Contains(cr.Error, c.ErrorContains) {
			cr.fail("error %q does not contain %q", cr.Error, c.ErrorContains)
		}
		if c.Path != "" {
			path, ok := errorPath(out.err)
			switch {
			case !ok:
				cr.fail("error carries no path, expected %q", c.Path)
			case path.String() != c.Path:
				cr.fail("error path is %q, expected %q", path.String(), c.Path)
			}
		}
		return
	case ExpectContained:
		if c.Path != "" && out.stats.StopPath.String() != c.Path {
			cr.fail("stopped at %q, expected %q", out.stats.StopPath.String(), c.Path)
		}
	}

	if c.Render != "" && cr.Value != c.Render {
		cr.fail("value renders as %q, expected %q", cr.Value, c.Render)
	}
	if c.Wire != "" && c.op() == OpRoundTrip && cr.Wire != strings.ToLower(c.Wire) {
		cr.fail("encoded as %s, expected %s", cr.Wire, strings.ToLower(c.Wire))
	}
	if c.Result != nil {
		checkResult(c.Result, out.value, cr)
	}
	if c.InferredType != nil {
		checkInferredType(c.InferredType, out.value, cr)
	}
}

func checkResult(expected *Operand, got cty.Value, cr *CaseResult) {
	want, err := expected.Build()
	if err != nil {
		cr.fail("result: %v", err)
		return
	}
	if !got.Equal(want) {
		cr.fail("result is %s, expected %s", got, want)
	}
}

func checkInferredType(desc any, got cty.Value, cr *CaseResult) {
	want, err := cty.TypeFromDescriptor(desc)
	if err != nil {
		cr.fail("inferred_type: %v", err)
		return
	}
	if !got.Type().Equals(want) {
		cr.fail("inferred %s, expected %s", cty.TypeString(got.Type()), cty.TypeString(want))
	}
}
