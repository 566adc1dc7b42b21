package langdetect

import (
	"context"
	"errors"
	"testing"
)

func TestDetectShortSampleIsUndetermined(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "ok", "12345 678"} {
		if got := DetectISO6391(input); got != "" {
			t.Fatalf("DetectISO6391(%q) = %q, want empty", input, got)
		}
	}

	_, err := New().Detect(context.Background(), "hi")
	if !errors.Is(err, ErrUndetermined) {
		t.Fatalf("expected ErrUndetermined, got %v", err)
	}
}

func TestDetectSupportedLanguages(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want string
	}{
		{text: "Die Kaffeebohnen werden jede Woche frisch in unserer Rösterei geröstet.", want: "de"},
		{text: "The coffee beans are freshly roasted every week in our own roastery.", want: "en"},
		{text: "Les grains de café sont torréfiés chaque semaine dans notre brûlerie.", want: "fr"},
	}

	for _, tc := range cases {
		got, err := New().Detect(context.Background(), tc.text)
		if err != nil {
			t.Fatalf("Detect(%q) error = %v", tc.text, err)
		}
		if got != tc.want {
			t.Fatalf("Detect(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
