package build

import (
	"slices"
	"strings"
	"testing"

	"unityrunner/internal/version"
)

func TestArgumentsOrderAndGates(t *testing.T) {
	p := Params{
		ProjectPath:     "/work/game",
		BuildTarget:     "StandaloneLinux64",
		PlayerFlag:      "buildLinux64Player",
		PlayerPath:      "/out/game",
		NoGraphics:      true,
		SilentCrashes:   true,
		ExecuteMethod:   "Build.Perform",
		ExtraArgs:       `-define "A B" -x`,
		RunEditorTests:  true,
		TestResultsPath: "/out/results.xml",
		TestCategories:  []string{"fast", " ", "smoke"},
		TestNames:       []string{"Foo.Bar"},
		CacheServer:     "10.0.0.1:8126",
	}
	inv, err := Arguments(version.MustParse("2022.3.1"), p, "editmode", "linux", "")
	if err != nil {
		t.Fatalf("Arguments: %v", err)
	}
	want := []string{
		"-batchmode",
		"-projectPath", "/work/game",
		"-buildTarget", "StandaloneLinux64",
		"-buildLinux64Player", "/out/game",
		"-nographics",
		"-silent-crashes",
		"-executeMethod", "Build.Perform",
		"-define", "A B", "-x",
		"-runTests", "-testPlatform", "editmode",
		"-testResults", "/out/results.xml",
		"-editorTestsCategories", "fast;smoke",
		"-editorTestsFilter", "Foo.Bar",
		"-logFile", "-",
		"-CacheServerIPAddress", "10.0.0.1:8126",
	}
	if !slices.Equal(inv.Args, want) {
		t.Fatalf("args\n got %v\nwant %v", inv.Args, want)
	}
	if inv.LogFile != "" {
		t.Fatalf("log file = %q, want stdout", inv.LogFile)
	}
}

func TestArgumentsLegacyVersion(t *testing.T) {
	p := Params{ProjectPath: "/p", RunEditorTests: true, TestResultsPath: "/r.xml"}
	inv, err := Arguments(version.MustParse("5.6.7"), p, "", "linux", "")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"-batchmode", "-projectPath=/p", "-runEditorTests", "-editorTestsResultFile", "/r.xml"}
	if !slices.Equal(inv.Args, want) {
		t.Fatalf("args %v, want %v", inv.Args, want)
	}
}

func TestArgumentsLogFile(t *testing.T) {
	tests := []struct {
		name    string
		version string
		goos    string
		params  Params
		wantLog string
		tail    bool
		temp    bool
	}{
		{"modern stdout", "2019.1", "linux", Params{}, "-", false, false},
		{"old stdout has no flag", "2018.4", "darwin", Params{}, "", false, false},
		{"explicit path", "2018.4", "linux", Params{LogFilePath: "/logs/u.log"}, "/logs/u.log", true, false},
		{"windows temp file", "2022.3", "windows", Params{}, "temp", true, true},
		{"windows explicit", "2022.3", "windows", Params{LogFilePath: `C:\logs\u.log`}, `C:\logs\u.log`, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := Arguments(version.MustParse(tt.version), tt.params, "", tt.goos, t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			i := slices.Index(inv.Args, "-logFile")
			switch {
			case tt.wantLog == "":
				if i >= 0 {
					t.Fatalf("unexpected -logFile in %v", inv.Args)
				}
			case tt.wantLog == "temp":
				if i < 0 || !strings.HasSuffix(inv.Args[i+1], ".log") {
					t.Fatalf("expected temp log in %v", inv.Args)
				}
			default:
				if i < 0 || inv.Args[i+1] != tt.wantLog {
					t.Fatalf("expected -logFile %s in %v", tt.wantLog, inv.Args)
				}
			}
			if (inv.LogFile != "") != tt.tail || inv.TempLog != tt.temp {
				t.Fatalf("LogFile=%q TempLog=%v", inv.LogFile, inv.TempLog)
			}
		})
	}
}

func TestArgumentsQuitOnlyWithoutTests(t *testing.T) {
	inv, _ := Arguments(version.MustParse("2021.3"), Params{}, "", "linux", "")
	if !slices.Contains(inv.Args, "-quit") {
		t.Fatalf("missing -quit: %v", inv.Args)
	}
	inv, _ = Arguments(version.MustParse("2021.3"), Params{RunEditorTests: true}, "playmode", "linux", "")
	if slices.Contains(inv.Args, "-quit") {
		t.Fatalf("tests must not -quit: %v", inv.Args)
	}
}

func TestArgumentsCleanedLogFile(t *testing.T) {
	inv, _ := Arguments(version.MustParse("2021.3"), Params{CleanedLogFile: true}, "", "linux", "")
	if !slices.Contains(inv.Args, "-cleanedLogFile") || slices.Contains(inv.Args, "-logFile") {
		t.Fatalf("args %v", inv.Args)
	}
}

func TestResultsPathPerPlatformForAll(t *testing.T) {
	p := Params{RunEditorTests: true, TestPlatform: "all", TestResultsPath: "/out/results.xml"}
	inv, _ := Arguments(version.MustParse("2021.3"), p, "playmode", "linux", "")
	i := slices.Index(inv.Args, "-testResults")
	if i < 0 || inv.Args[i+1] != "/out/results-playmode.xml" {
		t.Fatalf("args %v", inv.Args)
	}
}

func TestTestPlatforms(t *testing.T) {
	cases := map[string][]string{
		"":         {""},
		"all":      {"editmode", "playmode"},
		"ALL":      {"editmode", "playmode"},
		"playmode": {"playmode"},
	}
	for in, want := range cases {
		got := TestPlatforms(Params{RunEditorTests: true, TestPlatform: in})
		if !slices.Equal(got, want) {
			t.Errorf("TestPlatforms(%q) = %v, want %v", in, got, want)
		}
	}
	if got := TestPlatforms(Params{TestPlatform: "all"}); !slices.Equal(got, []string{""}) {
		t.Errorf("without tests got %v", got)
	}
}

func TestSplitArgs(t *testing.T) {
	cases := map[string][]string{
		"":                         nil,
		"  -a   -b ":               {"-a", "-b"},
		`-define "A B" 'c d'`:      {"-define", "A B", "c d"},
		`"say \"hi\"" x\y`:         {`say "hi"`, `x\y`},
		`-empty ""`:                {"-empty", ""},
		`-path="C:\Program Files"`: {`-path=C:\Program Files`},
	}
	for in, want := range cases {
		got, err := SplitArgs(in)
		if err != nil {
			t.Fatalf("SplitArgs(%q): %v", in, err)
		}
		if !slices.Equal(got, want) {
			t.Errorf("SplitArgs(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := SplitArgs(`"open`); err == nil {
		t.Error("expected unterminated quote error")
	}
}
