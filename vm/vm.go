package vm

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("embery.vm")

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config sizes a VM. Every limit is fixed for the VM's lifetime.
type Config struct {
	PoolSize     int       // bytes available to heap objects, classes and frames
	MaxRegisters int       // slots in the register file
	MaxFrames    int       // call depth limit, 0 for none beyond the pool
	DebugMethods bool      // install object_id, instance_methods and friends
	Profile      bool      // count dispatches and raises
	Console      io.Writer // sink for p, print and puts
}

// DefaultConfig returns the configuration of a small device build.
func DefaultConfig() Config {
	return Config{
		PoolSize:     40 * 1024,
		MaxRegisters: 256,
		MaxFrames:    64,
		Console:      os.Stdout,
	}
}

// ---------------------------------------------------------------------------
// VM
// ---------------------------------------------------------------------------

// VM is one interpreter instance. A VM is single threaded: every method must
// be called from the goroutine that drives it.
type VM struct {
	RunID    uuid.UUID
	Symbols  *SymbolTable
	Consts   *ConstTable
	Profiler *Profiler

	config Config
	pool   *Pool
	serial uint32
	live   int

	// Bootstrap classes
	ObjectClass  *Class
	ProcClass    *Class
	NilClass     *Class
	TrueClass    *Class
	FalseClass   *Class
	IntegerClass *Class
	FloatClass   *Class
	SymbolClass  *Class
	StringClass  *Class

	// Exception hierarchy
	ExceptionClass     *Class
	StandardErrorClass *Class
	RuntimeErrorClass  *Class
	TypeErrorClass     *Class
	ArgumentErrorClass *Class
	NameErrorClass     *Class
	NoMethodErrorClass *Class

	topSelf Value

	// Register file and the active context
	regs        []Value
	regHigh     int
	base        int
	irep        *Irep
	pc          int
	targetClass *Class

	// Call-frame stack and protection markers
	callinfoTail   *CallFrame
	exceptionTail  *CallFrame
	entry          *CallFrame // call-frame tail when the current pass began
	finalizeFrame  *CallFrame
	settleOnReturn bool // RETURN at finalizeFrame settles the exception
	depth          int

	// Native call in progress
	callBase int
	callee   Symbol

	jumped  bool
	aborted bool

	// Exception state
	excState   ExceptionState
	exc        *Class
	excMessage Value
	pending    *Class
	pendingMsg Value

	symInitialize Symbol
	symCall       Symbol
}

// NewVM creates a VM and installs the bootstrap classes.
func NewVM(cfg Config) (*VM, error) {
	def := DefaultConfig()
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = def.PoolSize
	}
	if cfg.MaxRegisters <= 0 {
		cfg.MaxRegisters = def.MaxRegisters
	}
	if cfg.Console == nil {
		cfg.Console = def.Console
	}

	vm := &VM{
		RunID:      uuid.New(),
		Symbols:    NewSymbolTable(),
		Consts:     NewConstTable(),
		config:     cfg,
		pool:       NewPool(cfg.PoolSize),
		regs:       make([]Value, cfg.MaxRegisters),
		excMessage: Nil,
		pendingMsg: Nil,
	}
	if cfg.Profile {
		vm.Profiler = NewProfiler()
	}
	vm.Intern("") // symbol 0 means "no method"

	if err := vm.bootstrap(); err != nil {
		return nil, err
	}
	log.Infof("[%s] vm ready: pool %d bytes, %d registers", vm.shortID(), cfg.PoolSize, cfg.MaxRegisters)
	return vm, nil
}

// bootstrap creates the core classes. Pool exhaustion here is reported as an
// error instead of aborting, since no script has run yet.
func (vm *VM) bootstrap() (err error) {
	defer func() {
		if r := recover(); r != nil {
			fatal, ok := r.(*FatalError)
			if !ok {
				panic(r)
			}
			err = fatal
		}
	}()

	vm.ObjectClass = vm.DefineClass("Object", nil)
	vm.ProcClass = vm.DefineClass("Proc", nil)
	vm.NilClass = vm.DefineClass("NilClass", nil)
	vm.TrueClass = vm.DefineClass("TrueClass", nil)
	vm.FalseClass = vm.DefineClass("FalseClass", nil)
	vm.IntegerClass = vm.DefineClass("Integer", nil)
	vm.FloatClass = vm.DefineClass("Float", nil)
	vm.SymbolClass = vm.DefineClass("Symbol", nil)
	vm.StringClass = vm.DefineClass("String", nil)

	vm.ExceptionClass = vm.DefineClass("Exception", nil)
	vm.StandardErrorClass = vm.DefineClass("StandardError", vm.ExceptionClass)
	vm.RuntimeErrorClass = vm.DefineClass("RuntimeError", vm.StandardErrorClass)
	vm.TypeErrorClass = vm.DefineClass("TypeError", vm.StandardErrorClass)
	vm.ArgumentErrorClass = vm.DefineClass("ArgumentError", vm.StandardErrorClass)
	vm.NameErrorClass = vm.DefineClass("NameError", vm.StandardErrorClass)
	vm.NoMethodErrorClass = vm.DefineClass("NoMethodError", vm.NameErrorClass)

	vm.symInitialize = vm.Intern("initialize")
	vm.symCall = vm.Intern("call")

	vm.installObjectPrimitives()
	vm.installProcPrimitives()
	vm.installNilPrimitives()
	vm.installBooleanPrimitives()
	vm.installPrintPrimitives()
	if vm.config.DebugMethods {
		vm.installDebugPrimitives()
	}

	vm.topSelf = vm.NewInstance(vm.ObjectClass)
	if vm.topSelf.IsNil() {
		vm.fatalf("no memory for main object")
	}
	return nil
}

// Close releases every value the VM still holds. The VM must not be used
// afterwards.
func (vm *VM) Close() {
	for i := range vm.regs {
		vm.clearReg(i)
	}
	vm.clearException()
	vm.ClearPending()
	vm.Release(vm.topSelf)
	vm.topSelf = Nil
	vm.releaseConsts()
	log.Debugf("[%s] closed with %d live objects", vm.shortID(), vm.live)
}

// Intern returns the symbol id for name.
func (vm *VM) Intern(name string) Symbol {
	return vm.Symbols.Intern(name)
}

// Config returns the configuration the VM was built with.
func (vm *VM) Config() Config {
	return vm.config
}

// PoolStats returns a snapshot of the VM's memory pool.
func (vm *VM) PoolStats() PoolStats {
	return vm.pool.Stats()
}

// TopSelf returns the main object scripts run against.
func (vm *VM) TopSelf() Value {
	return vm.topSelf
}

// Aborted reports whether a fatal error has made the VM unusable.
func (vm *VM) Aborted() bool {
	return vm.aborted
}

func (vm *VM) shortID() string {
	return vm.RunID.String()[:8]
}
