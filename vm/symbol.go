package vm

// ---------------------------------------------------------------------------
// SymbolTable: Interned symbols
// ---------------------------------------------------------------------------

// Symbol is the small integer id of an interned name.
type Symbol uint32

// SymbolTable interns names to unique IDs. Method, instance variable and
// constant lookups are all keyed by these IDs.
//
// The table is written while classes and methods are being defined and read
// during execution. The interpreter is single threaded, so no locking is
// done here.
type SymbolTable struct {
	byName map[string]Symbol
	byID   []string
}

// NewSymbolTable creates a new empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: make(map[string]Symbol),
		byID:   make([]string, 0, 256),
	}
}

// Intern returns the ID for a name, creating a new one if needed.
func (st *SymbolTable) Intern(name string) Symbol {
	if id, ok := st.byName[name]; ok {
		return id
	}
	id := Symbol(len(st.byID))
	st.byName[name] = id
	st.byID = append(st.byID, name)
	return id
}

// Lookup returns the ID for a name, or 0 and false if it was never interned.
func (st *SymbolTable) Lookup(name string) (Symbol, bool) {
	id, ok := st.byName[name]
	return id, ok
}

// Name returns the name for an ID, or "" if invalid.
func (st *SymbolTable) Name(id Symbol) string {
	if int(id) >= len(st.byID) {
		return ""
	}
	return st.byID[id]
}

// Len returns the number of interned symbols.
func (st *SymbolTable) Len() int {
	return len(st.byID)
}
