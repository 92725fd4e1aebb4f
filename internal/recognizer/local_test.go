package recognizer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"regexp"
	"testing"

	"github.com/rs/zerolog"

	"parking-anpr-service/internal/domain/recognition"
)

var synthesizedGrammar = regexp.MustCompile(`^[A-Z]{2}[0-9]{2} [A-Z]{3}$`)

func newLocal(seed int64) *LocalRecognizer {
	return NewLocalRecognizer(rand.New(rand.NewSource(seed)), zerolog.Nop())
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// testImage builds a white image with the leftmost strip of the given
// width fraction filled blue for the topmost blueRows rows.
func testImage(width, height int, blueRows int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	blue := color.RGBA{R: 0, G: 0, B: 255, A: 255}

	stripWidth := width / 10
	if stripWidth < 1 {
		stripWidth = 1
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := white
			if x < stripWidth && y < blueRows {
				c = blue
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestFilenamePatternExtraction(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"compact uppercase", "AA70PYY.jpg", "AA70 PYY"},
		{"already spaced", "AA70 PYY.jpg", "AA70 PYY"},
		{"lowercase", "bd51smr.png", "BD51 SMR"},
		{"with directory", "/uploads/ab12cde.jpeg", "AB12 CDE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arbitrary undecodable pixels: the filename stage is
			// authoritative and independent of image content.
			req := recognition.Request{
				Image:    []byte{0x00, 0x01, 0x02},
				MimeType: "image/jpeg",
				Filename: tt.filename,
			}

			result, err := newLocal(1).Recognize(context.Background(), req)
			if err != nil {
				t.Fatalf("Recognize() error = %v", err)
			}
			if result.PlateNumber != tt.want {
				t.Errorf("PlateNumber = %q, want %q", result.PlateNumber, tt.want)
			}
			if result.CountryIdentifier != "GB" {
				t.Errorf("CountryIdentifier = %q, want GB", result.CountryIdentifier)
			}
			if result.Confidence != 0.74 {
				t.Errorf("Confidence = %v, want 0.74", result.Confidence)
			}
			if result.Origin != recognition.OriginLocal {
				t.Errorf("Origin = %q, want local", result.Origin)
			}
		})
	}
}

func TestFilenameStageIgnoresNonMatches(t *testing.T) {
	nonMatches := []string{"car.jpg", "AA7PYY.jpg", "AA70PYYX.jpg", "1234567.jpg", ""}

	for _, filename := range nonMatches {
		req := recognition.Request{
			Image:    encodePNG(t, testImage(200, 200, 0)),
			MimeType: "image/png",
			Filename: filename,
		}

		result, err := newLocal(1).Recognize(context.Background(), req)
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		// 200x200 fails the aspect check, so falling past stage 1 must
		// land on the geometric rejection.
		if result.PlateNumber != recognition.PlateUnknown {
			t.Errorf("filename %q: PlateNumber = %q, want UNKNOWN", filename, result.PlateNumber)
		}
	}
}

func TestDecodeFailureReturnsErrorSentinel(t *testing.T) {
	req := recognition.Request{
		Image:    []byte{0xFF},
		MimeType: "image/jpeg",
		Filename: "garbage.jpg",
	}

	result, err := newLocal(1).Recognize(context.Background(), req)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if result.PlateNumber != recognition.PlateError {
		t.Errorf("PlateNumber = %q, want ERROR", result.PlateNumber)
	}
	if result.CountryIdentifier != recognition.CountryUnknown {
		t.Errorf("CountryIdentifier = %q, want UNKNOWN", result.CountryIdentifier)
	}
	if result.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", result.Confidence)
	}
}

func TestAspectRatioRejection(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
	}{
		{"square", 100, 100},
		{"too elongated", 600, 100},
		{"portrait", 100, 450},
		{"slightly under window", 340, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := recognition.Request{
				Image:    encodePNG(t, testImage(tt.width, tt.height, tt.height)),
				MimeType: "image/png",
			}

			result, err := newLocal(1).Recognize(context.Background(), req)
			if err != nil {
				t.Fatalf("Recognize() error = %v", err)
			}
			if result.PlateNumber != recognition.PlateUnknown {
				t.Errorf("PlateNumber = %q, want UNKNOWN", result.PlateNumber)
			}
			if result.CountryIdentifier != recognition.CountryUnknown {
				t.Errorf("CountryIdentifier = %q, want UNKNOWN", result.CountryIdentifier)
			}
			if result.Confidence != 0.5 {
				t.Errorf("Confidence = %v, want 0.5", result.Confidence)
			}
		})
	}
}

func TestBlueStripSelectsNarrowCannedPlate(t *testing.T) {
	// 450x100: ratio 4.5, width in (400,500), fully blue strip.
	req := recognition.Request{
		Image:    encodePNG(t, testImage(450, 100, 100)),
		MimeType: "image/png",
	}

	result, err := newLocal(1).Recognize(context.Background(), req)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if result.PlateNumber != "AA03 BOJ" {
		t.Errorf("PlateNumber = %q, want AA03 BOJ", result.PlateNumber)
	}
	if result.CountryIdentifier != "GB" {
		t.Errorf("CountryIdentifier = %q, want GB", result.CountryIdentifier)
	}
	if result.Confidence != 0.85 {
		t.Errorf("Confidence = %v, want 0.85", result.Confidence)
	}
}

func TestBlueFractionCutoffIsStrict(t *testing.T) {
	// Exactly 30% of the strip is blue: not enough, country must stay
	// UNKNOWN and the narrow bucket must not fire.
	req := recognition.Request{
		Image:    encodePNG(t, testImage(450, 100, 30)),
		MimeType: "image/png",
	}

	result, err := newLocal(1).Recognize(context.Background(), req)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if result.CountryIdentifier != recognition.CountryUnknown {
		t.Errorf("CountryIdentifier = %q, want UNKNOWN", result.CountryIdentifier)
	}
	if result.PlateNumber == "AA03 BOJ" {
		t.Error("narrow canned plate fired without a GB identification")
	}
}

func TestWideBucketIgnoresCountry(t *testing.T) {
	tests := []struct {
		name     string
		blueRows int
		country  string
	}{
		{"without blue strip", 0, recognition.CountryUnknown},
		{"with blue strip", 110, "GB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := recognition.Request{
				Image:    encodePNG(t, testImage(550, 110, tt.blueRows)),
				MimeType: "image/png",
			}

			result, err := newLocal(1).Recognize(context.Background(), req)
			if err != nil {
				t.Fatalf("Recognize() error = %v", err)
			}
			if result.PlateNumber != "AA00 AAA" {
				t.Errorf("PlateNumber = %q, want AA00 AAA", result.PlateNumber)
			}
			if result.CountryIdentifier != tt.country {
				t.Errorf("CountryIdentifier = %q, want %q", result.CountryIdentifier, tt.country)
			}
			if result.Confidence != 0.68 {
				t.Errorf("Confidence = %v, want 0.68", result.Confidence)
			}
		})
	}
}

func TestBlueStripAffectsCountryOnly(t *testing.T) {
	// 380x100: ratio 3.8 is plausible, but width misses both buckets,
	// so synthesis decides the plate. The GB identification from the
	// strip must survive while the confidence comes from stage 4.
	req := recognition.Request{
		Image:    encodePNG(t, testImage(380, 100, 100)),
		MimeType: "image/png",
	}

	result, err := newLocal(5).Recognize(context.Background(), req)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if result.CountryIdentifier != "GB" {
		t.Errorf("CountryIdentifier = %q, want GB", result.CountryIdentifier)
	}
	if result.Confidence != 0.6 {
		t.Errorf("Confidence = %v, want the synthesis confidence 0.6", result.Confidence)
	}
	if !synthesizedGrammar.MatchString(result.PlateNumber) {
		t.Errorf("PlateNumber = %q, want a synthesized plate", result.PlateNumber)
	}
}

func TestAspectWindowBoundariesAreInclusive(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		height    int
		wantPlate string
		wantConf  float64
	}{
		// Ratio exactly 3.5: inside the window, width misses both
		// buckets, so the pipeline reaches synthesis.
		{"lower bound", 350, 100, "", 0.6},
		// Ratio exactly 5.5: inside the window, width hits the wide
		// bucket.
		{"upper bound", 550, 100, "AA00 AAA", 0.68},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := recognition.Request{
				Image:    encodePNG(t, testImage(tt.width, tt.height, 0)),
				MimeType: "image/png",
			}

			result, err := newLocal(9).Recognize(context.Background(), req)
			if err != nil {
				t.Fatalf("Recognize() error = %v", err)
			}
			if result.PlateNumber == recognition.PlateUnknown {
				t.Fatalf("ratio %d/%d rejected, want it inside the window", tt.width, tt.height)
			}
			if tt.wantPlate != "" && result.PlateNumber != tt.wantPlate {
				t.Errorf("PlateNumber = %q, want %q", result.PlateNumber, tt.wantPlate)
			}
			if result.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", result.Confidence, tt.wantConf)
			}
		})
	}
}

func TestSynthesizedPlateMatchesGrammar(t *testing.T) {
	// 450x100 without a blue strip: the narrow rule needs GB, the wide
	// rule needs width > 500, so synthesis is the only path left.
	payload := encodePNG(t, testImage(450, 100, 0))

	for seed := int64(0); seed < 25; seed++ {
		req := recognition.Request{Image: payload, MimeType: "image/png"}

		result, err := newLocal(seed).Recognize(context.Background(), req)
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if !synthesizedGrammar.MatchString(result.PlateNumber) {
			t.Errorf("seed %d: synthesized plate %q does not match grammar", seed, result.PlateNumber)
		}
		if result.Confidence != 0.6 {
			t.Errorf("seed %d: Confidence = %v, want 0.6", seed, result.Confidence)
		}
	}
}

func TestSynthesisIsDeterministicForFixedSeed(t *testing.T) {
	payload := encodePNG(t, testImage(450, 100, 0))
	req := recognition.Request{Image: payload, MimeType: "image/png"}

	first, err := newLocal(42).Recognize(context.Background(), req)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	second, err := newLocal(42).Recognize(context.Background(), req)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	if first.PlateNumber != second.PlateNumber {
		t.Errorf("same seed produced %q and %q", first.PlateNumber, second.PlateNumber)
	}
}
