package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"fastjob.dev/devtools/internal/api"
)

func TestReporterExchange(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out)

	r.Exchange(api.Exchange{StatusCode: 200, Body: []byte(`{"jwt":"abc"}`)})
	r.Exchange(api.Exchange{StatusCode: 502, Body: []byte("Bad Gateway\n")})

	got := out.String()
	for _, want := range []string{
		"   Status: 200\n",
		"   Response: {\n     \"jwt\": \"abc\"\n   }\n",
		"   Status: 502\n",
		"   Response: Bad Gateway\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestReporterExchangeNested(t *testing.T) {
	var out bytes.Buffer
	NewReporter(&out).Exchange(api.Exchange{StatusCode: 201, Body: []byte(`{"data":{"id":7}}`)})

	want := "   Status: 201\n" +
		"   Response: {\n" +
		"     \"data\": {\n" +
		"       \"id\": 7\n" +
		"     }\n" +
		"   }\n"
	if out.String() != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", out.String(), want)
	}
}

func TestReporterHeadingAndBlank(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out)

	r.Heading("=== %s ===", "Testing")
	r.Blank()
	r.Heading("2. Testing withdraw of $%s...", "10")

	want := "=== Testing ===\n\n2. Testing withdraw of $10...\n"
	if out.String() != want {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestStepError(t *testing.T) {
	err := fmt.Errorf("run: %w", &StepError{Step: StepListBanks, Err: ErrNoBanks})
	step, ok := FailedStep(err)
	if !ok || step != StepListBanks {
		t.Fatalf("unexpected step %v", step)
	}
	if !errors.Is(err, ErrNoBanks) {
		t.Fatal("expected wrapped ErrNoBanks")
	}
	if _, ok := FailedStep(errors.New("plain")); ok {
		t.Fatal("plain error has no step")
	}
	if Step(99).String() != "step(99)" {
		t.Fatalf("unexpected name %q", Step(99).String())
	}
}
