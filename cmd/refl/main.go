package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/reflens/internal/config"
	"github.com/standardbeagle/reflens/internal/debug"
	"github.com/standardbeagle/reflens/internal/display"
	"github.com/standardbeagle/reflens/internal/mcp"
	"github.com/standardbeagle/reflens/internal/resolver"
	"github.com/standardbeagle/reflens/internal/scanner"
	"github.com/standardbeagle/reflens/internal/scope"
	"github.com/standardbeagle/reflens/internal/symbols"
	"github.com/standardbeagle/reflens/internal/syntax"
	"github.com/standardbeagle/reflens/internal/types"
	"github.com/standardbeagle/reflens/internal/usages"
	"github.com/standardbeagle/reflens/internal/version"
	"github.com/standardbeagle/reflens/internal/workspace"
)

func main() {
	app := &cli.App{
		Name:                   "refl",
		Usage:                  "Lazy reference resolution for polyglot codebases",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Workspace root directory (defaults to the current directory)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Only consider files matching these glob patterns",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Additionally exclude files matching these glob patterns",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Parallel scan workers (0 = sequential)",
			},
			&cli.BoolFlag{
				Name:  "trigram",
				Usage: "Enable the in-memory trigram file filter",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "usages",
				Aliases:   []string{"u"},
				Usage:     "Find all usages of the symbol at a position",
				ArgsUsage: "<file> <line>:<col>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Byte offset of the symbol (alternative to line:col)",
						Value: -1,
					},
					&cli.StringFlag{
						Name:    "scope",
						Aliases: []string{"s"},
						Usage:   "Restrict the search: workspace, file, no-tests",
						Value:   "workspace",
					},
					&cli.BoolFlag{
						Name:    "declaration",
						Aliases: []string{"d"},
						Usage:   "Report the declaration itself as a usage",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, compact, json",
						Value:   "text",
					},
					&cli.BoolFlag{
						Name:  "no-snippets",
						Usage: "Omit source line snippets",
					},
				},
				Action: usagesCommand,
			},
			{
				Name:      "symbols",
				Aliases:   []string{"sym"},
				Usage:     "Fuzzy search workspace definitions by name",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "max",
						Aliases: []string{"m"},
						Usage:   "Maximum results",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: symbolsCommand,
			},
			{
				Name:      "scan",
				Usage:     "Show raw word-boundary candidates for an identifier",
				ArgsUsage: "<identifier>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "Restrict the scan to one file",
					},
				},
				Action: scanCommand,
			},
			{
				Name:   "status",
				Usage:  "Show workspace summary",
				Action: statusCommand,
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration after merging and defaults",
				Action: configCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the engine over Model Context Protocol on stdio",
				Action: mcpCommand,
			},
		},
		Action: func(c *cli.Context) error {
			return cli.ShowAppHelp(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "refl: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, err
	}
	if include := c.StringSlice("include"); len(include) > 0 {
		cfg.Include = include
	}
	if exclude := c.StringSlice("exclude"); len(exclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, exclude...)
	}
	if c.IsSet("workers") {
		cfg.Scan.Workers = c.Int("workers")
	}
	if c.Bool("trigram") {
		cfg.Scan.TrigramAccel = true
	}

	if err := config.NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		return nil, err
	}
	cfg.EnrichExclusionsWithBuildArtifacts()
	return cfg, nil
}

// engine bundles the query stack the CLI commands share.
type engine struct {
	cfg      *config.Config
	ws       *workspace.Workspace
	provider *workspace.Provider
	view     *syntax.View
	res      *resolver.Resolver
	funnel   *usages.Funnel
	search   *symbols.Search
}

func buildEngine(c *cli.Context) (*engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	ws, err := workspace.New(cfg)
	if err != nil {
		return nil, err
	}

	provider := workspace.NewProvider(ws)
	view := syntax.NewView()
	res := resolver.New(view, ws, provider)

	var opts []usages.FunnelOption
	if cfg.Scan.TrigramAccel {
		opts = append(opts, usages.WithTrigramIndex(scanner.NewTrigramIndex()))
	}
	if w := cfg.EffectiveWorkers(); w > 1 {
		opts = append(opts, usages.WithWorkers(w))
	}

	return &engine{
		cfg:      cfg,
		ws:       ws,
		provider: provider,
		view:     view,
		res:      res,
		funnel:   usages.NewFunnel(ws, provider, view, res, scope.NewComputer(ws), opts...),
		search:   symbols.NewSearch(ws, provider, view, res, cfg.Symbols),
	}, nil
}

func usagesCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("usage: refl usages <file> <line>:<col> (or --offset N)")
	}

	eng, err := buildEngine(c)
	if err != nil {
		return err
	}

	file := c.Args().Get(0)
	id, ok := eng.ws.IDOfAny(file)
	if !ok {
		return fmt.Errorf("file %q is not in the workspace", file)
	}

	offset, err := positionArg(c, eng, id)
	if err != nil {
		return err
	}

	restriction := types.Restriction{Kind: types.RestrictWorkspace}
	switch c.String("scope") {
	case "workspace":
	case "file":
		restriction = types.Restriction{Kind: types.RestrictSingleFile, File: id}
	case "no-tests":
		restriction = types.Restriction{Kind: types.RestrictExcludeTests}
	default:
		return fmt.Errorf("unknown scope %q (want workspace, file or no-tests)", c.String("scope"))
	}

	stream := eng.funnel.FindUsages(c.Context,
		types.Position{File: id, Offset: offset},
		restriction,
		usages.Options{IncludeDeclaration: c.Bool("declaration")})
	found := stream.Collect()

	formatter := display.NewUsageFormatter(display.FormatterOptions{
		Format:      c.String("format"),
		ShowSnippet: !c.Bool("no-snippets"),
	})
	fmt.Print(formatter.Format(found, stream.Diagnostics()))
	return nil
}

// positionArg resolves the symbol position from either --offset or the
// line:col argument.
func positionArg(c *cli.Context, eng *engine, id types.FileID) (uint32, error) {
	if off := c.Int("offset"); off >= 0 {
		return uint32(off), nil
	}
	if c.NArg() < 2 {
		return 0, errors.New("missing position: pass <line>:<col> or --offset")
	}

	arg := c.Args().Get(1)
	line, col, ok := splitLineCol(arg)
	if !ok {
		return 0, fmt.Errorf("invalid position %q, want <line>:<col>", arg)
	}

	content, err := eng.provider.Read(id)
	if err != nil {
		return 0, err
	}
	off, ok := scanner.NewLineIndex(content).OffsetOf(line, col)
	if !ok {
		return 0, fmt.Errorf("position %s is outside the file", arg)
	}
	return off, nil
}

func splitLineCol(s string) (line, col int, ok bool) {
	lineStr, colStr, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	line, err := strconv.Atoi(lineStr)
	if err != nil || line < 1 {
		return 0, 0, false
	}
	col, err = strconv.Atoi(colStr)
	if err != nil || col < 1 {
		return 0, 0, false
	}
	return line, col, true
}

func symbolsCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("usage: refl symbols <query>")
	}

	eng, err := buildEngine(c)
	if err != nil {
		return err
	}

	matches, err := eng.search.Query(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	if max := c.Int("max"); max > 0 && len(matches) > max {
		matches = matches[:max]
	}

	format := "text"
	if c.Bool("json") {
		format = "json"
	}
	fmt.Print(display.FormatSymbols(matches, format))
	return nil
}

func scanCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("usage: refl scan <identifier>")
	}

	eng, err := buildEngine(c)
	if err != nil {
		return err
	}

	sc := types.EntireWorkspace()
	if file := c.String("file"); file != "" {
		id, ok := eng.ws.IDOfAny(file)
		if !ok {
			return fmt.Errorf("file %q is not in the workspace", file)
		}
		sc = types.ScopeOf(id)
	}

	scn := scanner.New(eng.ws, eng.provider)
	count := 0
	for pos := range scn.Scan(c.Context, sc, c.Args().First()) {
		fmt.Printf("%s:%d\n", eng.ws.PathOf(pos.File), pos.Offset)
		count++
	}
	fmt.Printf("%d candidates\n", count)
	return nil
}

func statusCommand(c *cli.Context) error {
	eng, err := buildEngine(c)
	if err != nil {
		return err
	}

	languages := make(map[syntax.Language]int)
	for _, id := range eng.ws.AllFiles() {
		if lang := syntax.LanguageForPath(eng.ws.PathOf(id)); lang != syntax.LangUnknown {
			languages[lang]++
		}
	}

	fmt.Printf("%s\n", version.FullInfo())
	fmt.Printf("root:    %s\n", eng.ws.Root())
	fmt.Printf("files:   %d\n", eng.ws.Len())
	fmt.Printf("workers: %d\n", eng.cfg.EffectiveWorkers())
	for _, lang := range syntax.SupportedLanguages() {
		if n := languages[lang]; n > 0 {
			fmt.Printf("  %-12s %d\n", lang, n)
		}
	}
	return nil
}

func configCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func mcpCommand(c *cli.Context) error {
	// Stdout belongs to the protocol; all logging moves to stderr/file.
	debug.SetMCPMode(true)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
