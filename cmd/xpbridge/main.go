package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/xpcom-bridge/bridge"
	"github.com/wippyai/xpcom-bridge/heap"
	"github.com/wippyai/xpcom-bridge/internal/demo"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/nsid"
	"github.com/wippyai/xpcom-bridge/resolver"
	"github.com/wippyai/xpcom-bridge/xpt"
)

func main() {
	var (
		typelibs    = flag.String("typelib", "", "TOML typelib files (comma-separated)")
		witFile     = flag.String("wit", "", "WIT file with function signatures to import")
		witIface    = flag.String("iface", "", "Interface name for the imported WIT functions")
		witIID      = flag.String("iid", "", "Interface IID for the imported WIT functions")
		list        = flag.Bool("list", false, "List interfaces and their managed method names")
		resolve     = flag.String("resolve", "", "Resolve a managed call name (iface.name)")
		runDemo     = flag.Bool("demo", false, "Run the built-in demo component through the bridge")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose development logging")
	)
	flag.Parse()

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	bridge.SetLogger(log)
	heap.SetLogger(log)

	if *typelibs == "" && *witFile == "" && !*runDemo {
		fmt.Fprintln(os.Stderr, "Usage: xpbridge -typelib <a.toml,b.toml> [-list] [-resolve iface.name]")
		fmt.Fprintln(os.Stderr, "       xpbridge -wit <file.wit> -iface <name> -iid <{iid}> [-list]")
		fmt.Fprintln(os.Stderr, "       xpbridge -demo")
		fmt.Fprintln(os.Stderr, "       xpbridge -typelib <a.toml> -i  (interactive mode)")
		os.Exit(1)
	}

	lib, err := loadTypelib(*typelibs, *witFile, *witIface, *witIID, *runDemo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(lib); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Stdout, lib, *list, *resolve, *runDemo); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func loadTypelib(typelibs, witFile, witIface, witIID string, withDemo bool) (*xpt.Typelib, error) {
	lib := xpt.NewTypelib()

	for _, path := range strings.Split(typelibs, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if err := lib.LoadTOMLFile(path); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if witFile != "" {
		if witIface == "" || witIID == "" {
			return nil, fmt.Errorf("-wit requires -iface and -iid")
		}
		iid, err := nsid.Parse(witIID)
		if err != nil {
			return nil, fmt.Errorf("parse -iid: %w", err)
		}
		data, err := os.ReadFile(witFile)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		if _, err := lib.ImportWIT(string(data), witIface, iid); err != nil {
			return nil, fmt.Errorf("import %s: %w", witFile, err)
		}
	}

	if withDemo {
		if err := lib.LoadTOML(demo.TOML); err != nil {
			return nil, fmt.Errorf("load demo typelib: %w", err)
		}
	}
	return lib, nil
}

func run(w io.Writer, lib *xpt.Typelib, listOnly bool, resolveName string, runDemo bool) error {
	fmt.Fprintf(w, "Interfaces: %d\n", lib.Len())

	if listOnly {
		fmt.Fprintln(w)
		for _, iface := range lib.Interfaces() {
			printInterface(w, iface)
		}
	}

	if resolveName != "" {
		if err := printResolution(w, lib, resolveName); err != nil {
			return err
		}
	}

	if runDemo {
		return runDemoCalls(w, lib)
	}
	return nil
}

func printInterface(w io.Writer, iface *xpt.Interface) {
	parent := ""
	if iface.Parent != nil {
		parent = " : " + iface.Parent.Name
	}
	fmt.Fprintf(w, "%s%s %s\n", iface.Name, parent, iface.IID)
	base := iface.MethodCount() - len(iface.Methods)
	for i, m := range iface.Methods {
		if m.Hidden {
			continue
		}
		fmt.Fprintf(w, "  [%d] %s\n", base+i, formatMethod(m))
	}
}

func managedMethodName(m *xpt.Method) string {
	switch {
	case m.Getter:
		get, _ := resolver.AccessorNames(m.Name, true)
		return get
	case m.Setter:
		_, set := resolver.AccessorNames(m.Name, false)
		return set
	}
	return resolver.ManagedName(m.Name)
}

func formatMethod(m *xpt.Method) string {
	var params []string
	result := ""
	for _, p := range m.Params {
		if p.Dir.IsRetval() {
			result = " -> " + p.Type.String()
			continue
		}
		params = append(params, fmt.Sprintf("%s %s: %s", p.Dir, p.Name, p.Type))
	}
	return managedMethodName(m) + "(" + strings.Join(params, ", ") + ")" + result
}

func printResolution(w io.Writer, lib *xpt.Typelib, name string) error {
	ifaceName, method, ok := strings.Cut(name, ".")
	if !ok {
		return fmt.Errorf("-resolve expects iface.name, got %q", name)
	}
	iface, ok := lib.InterfaceByName(ifaceName)
	if !ok {
		return fmt.Errorf("interface %q not found", ifaceName)
	}
	match, err := resolver.Resolve(iface, method)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s.%s -> [%d] %s (%s)\n", iface.Name, method, match.Index, match.Method.Name, match.Strategy)
	return nil
}

func runDemoCalls(w io.Writer, lib *xpt.Typelib) error {
	ctx := context.Background()

	vm := managed.NewVM()
	b, err := bridge.New(ctx, bridge.Options{Oracle: lib})
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}
	defer b.Shutdown(ctx)
	vm.SetProxyFinalizer(b.FinalizeProxy)

	fmt.Fprintf(w, "\nCalling %s through the bridge...\n", demo.InterfaceName)
	steps, err := demo.Run(ctx, b, vm.Attach())
	if err != nil {
		return err
	}
	for _, s := range steps {
		fmt.Fprintf(w, "  %s\n", s)
	}

	st := b.Heap().Stats()
	fmt.Fprintf(w, "\nHeap: %d allocs, %d frees, %d live blocks\n", st.Allocs, st.Frees, st.LiveBlocks)
	return nil
}
