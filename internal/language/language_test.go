package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hi", "hi"},
		{"HI", "hi"},
		{" hin ", "hi"},
		{"Hindi", "hi"},
		{"fre", "fr"},
		{"ger", "de"},
		{"english", "en"},
		{"auto", Auto},
		{"AUTO", Auto},
		{"zh-CN", "zh-CN"},
		{"pt_br", "pt-BR"},
		{"sv", "sv"},
		{"", ""},
		{"   ", ""},
		{"not-a-language-tag!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBase(t *testing.T) {
	tests := map[string]string{
		"zh-CN": "zh",
		"hindi": "hi",
		"nb":    "no",
		"auto":  "",
		"":      "",
	}
	for input, want := range tests {
		if got := Base(input); got != want {
			t.Fatalf("Base(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestVoiceLocale(t *testing.T) {
	tests := map[string]string{
		"hi-IN-SwaraNeural":    "hi-IN",
		"zh-CN-XiaoxiaoNeural": "zh-CN",
		"en-US":                "en-US",
		"SwaraNeural":          "",
		"":                     "",
		"-IN-Swara":            "",
	}
	for input, want := range tests {
		if got := VoiceLocale(input); got != want {
			t.Fatalf("VoiceLocale(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestVoiceMatches(t *testing.T) {
	tests := []struct {
		target string
		voice  string
		want   bool
	}{
		{"hi", "hi-IN-SwaraNeural", true},
		{"hindi", "hi-IN-MadhurNeural", true},
		{"zh-CN", "zh-TW-HsiaoChenNeural", true},
		{"no", "nb-NO-PernilleNeural", true},
		{"hi", "en-US-AriaNeural", false},
		{"ru", "uk-UA-OstapNeural", false},
		{"hi", "CustomVoice", true},
	}
	for _, tt := range tests {
		if got := VoiceMatches(tt.target, tt.voice); got != tt.want {
			t.Fatalf("VoiceMatches(%q, %q) = %v, want %v", tt.target, tt.voice, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("hi"); got != "Hindi" {
		t.Fatalf("DisplayName(hi) = %q", got)
	}
	if got := DisplayName("auto"); got != "Auto-detect" {
		t.Fatalf("DisplayName(auto) = %q", got)
	}
	if got := DisplayName(""); got != "Unknown" {
		t.Fatalf("DisplayName(\"\") = %q", got)
	}
}
