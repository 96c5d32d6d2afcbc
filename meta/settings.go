// SPDX-License-Identifier: Apache-2.0

package meta

// LanguageSettings are the build settings of one language of the package target
type LanguageSettings struct {
	// Defines are NAME or NAME=VALUE entries
	Defines     []string
	SearchPaths []string
	UnsafeFlags []string
}

func (s LanguageSettings) IsEmpty() bool {
	return len(s.Defines) == 0 && len(s.SearchPaths) == 0 && len(s.UnsafeFlags) == 0
}

func (s LanguageSettings) clone() LanguageSettings {
	return LanguageSettings{
		Defines:     append([]string(nil), s.Defines...),
		SearchPaths: append([]string(nil), s.SearchPaths...),
		UnsafeFlags: append([]string(nil), s.UnsafeFlags...),
	}
}

// LinkerSettings extends LanguageSettings with linked frameworks and libraries
type LinkerSettings struct {
	LanguageSettings
	Frameworks []string
	Libraries  []string
}

func (s LinkerSettings) IsEmpty() bool {
	return s.LanguageSettings.IsEmpty() && len(s.Frameworks) == 0 && len(s.Libraries) == 0
}

// TargetSettings holds the per-language settings of the synthesized target
type TargetSettings struct {
	C      LanguageSettings
	Cxx    LanguageSettings
	Swift  LanguageSettings
	Linker LinkerSettings
}

// Clone returns a deep copy
func (s TargetSettings) Clone() TargetSettings {
	return TargetSettings{
		C:     s.C.clone(),
		Cxx:   s.Cxx.clone(),
		Swift: s.Swift.clone(),
		Linker: LinkerSettings{
			LanguageSettings: s.Linker.LanguageSettings.clone(),
			Frameworks:       append([]string(nil), s.Linker.Frameworks...),
			Libraries:        append([]string(nil), s.Linker.Libraries...),
		},
	}
}
