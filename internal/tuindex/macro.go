package tuindex

import (
	"sort"

	"github.com/scip-clang-go/scip-clang-go/internal/frontend"
)

// IncludeDirective is one #include directive's resolved target, stored
// per containing file so the indexer can later emit a synthetic
// file-definition symbol targetable by go-to-definition on the directive
// (spec §4.2.1).
type IncludeDirective struct {
	Range                frontend.SourceRange
	ResolvedAbsolutePath string
}

// MacroOccurrence is one recorded macro reference or definition site,
// grounded on Indexer.h's FileLocalMacroOccurrence.
type MacroOccurrence struct {
	Range frontend.SourceRange
	Def   frontend.MacroDefID
	Role  frontend.MacroRole
}

// MacroIndexer implements frontend.PreprocessorObserver, recording macro
// occurrences, non-file-based macros, and #include directives during one
// TU's preprocessor pass (spec §4.2.1). Grounded on Indexer.h's
// MacroIndexer class (saveReference/saveDefinition/saveInclude ->
// OnMacroExpansion/OnMacroDefine+OnMacroUndef/OnInclude).
type MacroIndexer struct {
	files *FileTable

	// occurrencesByFile deduplicates by range only (spec §4.2.1: "the set
	// deduplicates because expanding a macro that expands other macros
	// causes the same inner occurrence to be reported multiple times;
	// recording occurrence identity as range only ... is the chosen
	// tie-break").
	occurrencesByFile map[frontend.FileID]map[frontend.SourceRange]MacroOccurrence

	// nonFileBasedMacros is the global set of command-line/builtin macro
	// definitions (spec §4.2.1: "Non-file-based macros ... are accumulated
	// in a separate global set keyed by the interned macro-definition
	// pointer; they become external symbols").
	nonFileBasedMacros map[frontend.MacroDefID]struct{}

	macroNames map[frontend.MacroDefID]string
	includes   map[frontend.FileID][]IncludeDirective
}

// NewMacroIndexer creates a macro indexer sharing files with the TU
// indexer driving the same walk.
func NewMacroIndexer(files *FileTable) *MacroIndexer {
	return &MacroIndexer{
		files:              files,
		occurrencesByFile:  make(map[frontend.FileID]map[frontend.SourceRange]MacroOccurrence),
		nonFileBasedMacros: make(map[frontend.MacroDefID]struct{}),
		macroNames:         make(map[frontend.MacroDefID]string),
		includes:           make(map[frontend.FileID][]IncludeDirective),
	}
}

// OnFileEnter implements frontend.PreprocessorObserver.
func (m *MacroIndexer) OnFileEnter(file frontend.FileID, absolutePath string) {
	m.files.OnFileEnter(file, absolutePath)
	if _, ok := m.occurrencesByFile[file]; !ok {
		m.occurrencesByFile[file] = make(map[frontend.SourceRange]MacroOccurrence)
	}
}

// OnFileExit implements frontend.PreprocessorObserver.
func (m *MacroIndexer) OnFileExit(file frontend.FileID) {
	m.files.OnFileExit(file)
}

// OnInclude implements frontend.PreprocessorObserver, recording the
// directive for later synthetic file-definition symbol emission.
func (m *MacroIndexer) OnInclude(file frontend.FileID, directiveRange frontend.SourceRange, resolvedAbsolutePath string) {
	m.includes[file] = append(m.includes[file], IncludeDirective{
		Range:                directiveRange,
		ResolvedAbsolutePath: resolvedAbsolutePath,
	})
}

// OnMacroDefine implements frontend.PreprocessorObserver.
func (m *MacroIndexer) OnMacroDefine(_ frontend.FileID, name string, def frontend.MacroDefID) {
	m.macroNames[def] = name
}

// OnMacroUndef implements frontend.PreprocessorObserver.
func (m *MacroIndexer) OnMacroUndef(_ frontend.FileID, name string, def frontend.MacroDefID) {
	m.macroNames[def] = name
}

// OnMacroExpansion implements frontend.PreprocessorObserver, recording a
// file-local occurrence keyed by range.
func (m *MacroIndexer) OnMacroExpansion(file frontend.FileID, occurrenceRange frontend.SourceRange, def frontend.MacroDefID, role frontend.MacroRole) {
	set, ok := m.occurrencesByFile[file]
	if !ok {
		set = make(map[frontend.SourceRange]MacroOccurrence)
		m.occurrencesByFile[file] = set
	}
	set[occurrenceRange] = MacroOccurrence{Range: occurrenceRange, Def: def, Role: role}
}

// RecordCommandLineMacro registers a macro defined outside any file (a
// -D flag or a compiler builtin), which becomes an external symbol (spec
// §4.2.1). The front-end interfaces in this module have no signal for
// these (tree-sitter has no concept of a command line), so callers derive
// them from the compile command's arguments before starting the walk.
func (m *MacroIndexer) RecordCommandLineMacro(name string, def frontend.MacroDefID) {
	m.macroNames[def] = name
	m.nonFileBasedMacros[def] = struct{}{}
}

// MacroName returns the name last associated with def.
func (m *MacroIndexer) MacroName(def frontend.MacroDefID) (string, bool) {
	name, ok := m.macroNames[def]
	return name, ok
}

// Occurrences returns the deduplicated macro occurrences recorded for
// file, sorted by range iff deterministic is set.
func (m *MacroIndexer) Occurrences(file frontend.FileID, deterministic bool) []MacroOccurrence {
	set := m.occurrencesByFile[file]
	occs := make([]MacroOccurrence, 0, len(set))
	for _, occ := range set {
		occs = append(occs, occ)
	}
	if deterministic {
		sort.Slice(occs, func(i, j int) bool { return lessRange(occs[i].Range, occs[j].Range) })
	}
	return occs
}

// Includes returns the #include directives recorded for file.
func (m *MacroIndexer) Includes(file frontend.FileID) []IncludeDirective {
	return m.includes[file]
}

// NonFileBasedMacros returns the global set of command-line/builtin
// macro definitions, sorted by def id iff deterministic is set.
func (m *MacroIndexer) NonFileBasedMacros(deterministic bool) []frontend.MacroDefID {
	ids := make([]frontend.MacroDefID, 0, len(m.nonFileBasedMacros))
	for id := range m.nonFileBasedMacros {
		ids = append(ids, id)
	}
	if deterministic {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return ids
}

func lessRange(a, b frontend.SourceRange) bool {
	if a.StartLine != b.StartLine {
		return a.StartLine < b.StartLine
	}
	if a.StartColumn != b.StartColumn {
		return a.StartColumn < b.StartColumn
	}
	if a.EndLine != b.EndLine {
		return a.EndLine < b.EndLine
	}
	return a.EndColumn < b.EndColumn
}
