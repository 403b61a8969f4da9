package client

import "github.com/vncqr/kiosk/internal/shared/platform"

// builtinCatalog defines the known clients per platform family, in
// preference order.
func builtinCatalog() []Descriptor {
	return []Descriptor{
		// Windows
		{
			ID:                 "tightvnc",
			Name:               "TightVNC Viewer",
			Executable:         "tvnviewer.exe",
			Locations: []string{
				`C:\Program Files\TightVNC\tvnviewer.exe`,
				`C:\Program Files (x86)\TightVNC\tvnviewer.exe`,
			},
			Globs:              []string{"**/tvnviewer*.exe"},
			Platform:           platform.Windows,
			Strategy:           StrategyArgs,
			SupportsCredential: true,
			HostFlag:           "-host",
			CredentialFlag:     "-password",
			FullscreenFlag:     "-fullscreen",
			SweepNames:         []string{"tvnviewer.exe"},
		},
		{
			ID:         "realvnc",
			Name:       "RealVNC Viewer",
			Executable: "vncviewer.exe",
			Locations: []string{
				`C:\Program Files\RealVNC\VNC Viewer\vncviewer.exe`,
				`C:\Program Files (x86)\RealVNC\VNC Viewer\vncviewer.exe`,
			},
			Globs:    []string{"**/vncviewer*.exe", "**/VNC-Viewer*.exe"},
			Platform: platform.Windows,
			Strategy: StrategyArgs,
			// The RealVNC CLI has no password parameter.
			SupportsCredential: false,
			SweepNames:         []string{"vncviewer.exe"},
		},
		{
			ID:         "ultravnc",
			Name:       "UltraVNC",
			Executable: "vncviewer.exe",
			Locations: []string{
				`C:\Program Files\uvnc bvba\UltraVNC\vncviewer.exe`,
				`C:\Program Files (x86)\uvnc bvba\UltraVNC\vncviewer.exe`,
				// Legacy install paths
				`C:\Program Files\UltraVNC\vncviewer.exe`,
				`C:\Program Files (x86)\UltraVNC\vncviewer.exe`,
			},
			Platform:           platform.Windows,
			Strategy:           StrategyArgs,
			SupportsCredential: true,
			CredentialFlag:     "-password",
			SweepNames:         []string{"vncviewer.exe"},
		},

		// macOS: built-in Screen Sharing via the open(1) URL handler.
		{
			ID:                 "screen-sharing",
			Name:               "macOS Screen Sharing",
			Executable:         "open",
			Platform:           platform.Darwin,
			Strategy:           StrategyURL,
			SupportsCredential: true,
			URLLauncher:        "open",
		},

		// Linux
		{
			ID:                 "remmina",
			Name:               "Remmina",
			Executable:         "remmina",
			Locations:          []string{"/usr/bin/remmina", "/usr/local/bin/remmina"},
			Platform:           platform.Linux,
			Strategy:           StrategyURL,
			SupportsCredential: true,
			ConnectArgs:        []string{"-c"},
			SweepNames:         []string{"remmina"},
		},
		{
			ID:                 "tigervnc",
			Name:               "TigerVNC Viewer",
			Executable:         "vncviewer",
			Locations:          []string{"/usr/bin/vncviewer", "/usr/local/bin/vncviewer"},
			Globs:              []string{"**/vncviewer*"},
			Platform:           platform.Linux,
			Strategy:           StrategyEnv,
			SupportsCredential: true,
			CredentialEnv:      "VNC_PASSWORD",
			FullscreenFlag:     "-FullScreen",
			SweepNames:         []string{"vncviewer"},
		},
		{
			ID:                 "vinagre",
			Name:               "Vinagre",
			Executable:         "vinagre",
			Locations:          []string{"/usr/bin/vinagre"},
			Platform:           platform.Linux,
			Strategy:           StrategyURL,
			SupportsCredential: true,
			SweepNames:         []string{"vinagre"},
		},
		{
			ID:                 "krdc",
			Name:               "KRDC",
			Executable:         "krdc",
			Locations:          []string{"/usr/bin/krdc"},
			Platform:           platform.Linux,
			Strategy:           StrategyURL,
			SupportsCredential: true,
			SweepNames:         []string{"krdc"},
		},
	}
}
