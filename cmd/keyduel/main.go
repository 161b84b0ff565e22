// Package main provides the CLI entrypoint for keyduel.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"keyduel/internal/analysis"
	"keyduel/internal/config"
	"keyduel/internal/docstore"
	"keyduel/internal/duelui"
	"keyduel/internal/engine"
	"keyduel/internal/feedback"
	"keyduel/internal/generator"
	"keyduel/internal/identity"
	"keyduel/internal/match"
	"keyduel/internal/model"
	"keyduel/internal/resultsui"
	"keyduel/internal/stats"
	"keyduel/internal/store"
	"keyduel/internal/tui"
	"keyduel/internal/wordlist"
)

const (
	defaultLevel       = "simple"
	defaultLang        = "en"
	defaultWords       = 25
	defaultTimeSeconds = 60
	defaultMistakeMode = "default"
	defaultRelayURL    = "ws://localhost:8091/ws"
	defaultWeakTop     = 10
	defaultWeakFactor  = 5.0
	defaultWeakWindow  = 10
	defaultTop         = 10
	defaultCurveWindow = 10
)

var (
	testLevel       string
	testLang        string
	testWords       int
	testTimeSeconds int
	testMistakeMode string
	testSound       bool

	statsLevel string
	statsLang  string
	statsSince string
	statsLast  int

	leaderboardTop int

	practiceWords      int
	practiceWeakTop    int
	practiceWeakFactor float64
	practiceWeakWindow int

	duelWords    int
	duelRelayURL string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keyduel",
		Short:         "Terminal typing trainer with 1v1 duels",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTestCmd,
	}

	rootCmd.Flags().StringVar(&testLevel, "level", defaultLevel, "difficulty level (simple, intermediate, expert, mixed, time)")
	rootCmd.Flags().StringVar(&testLang, "lang", defaultLang, "language code")
	rootCmd.Flags().IntVar(&testWords, "words", defaultWords, "words per test")
	rootCmd.Flags().IntVar(&testTimeSeconds, "time", defaultTimeSeconds, "seconds for the time level")
	rootCmd.Flags().StringVar(&testMistakeMode, "mistake-mode", defaultMistakeMode, "mistake tolerance (default, pro, god)")
	rootCmd.Flags().BoolVar(&testSound, "sound", false, "ring the terminal bell on mistakes")

	rootCmd.AddCommand(newPracticeCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newDuelCmd())
	rootCmd.AddCommand(newNameCmd())
	rootCmd.AddCommand(newLangsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runTestCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "level", &testLevel, fileCfg.Test.Level)
	applyStringConfig(cmd, "lang", &testLang, fileCfg.Test.Lang)
	applyIntConfig(cmd, "words", &testWords, fileCfg.Test.Words)
	applyIntConfig(cmd, "time", &testTimeSeconds, fileCfg.Test.TimeSeconds)
	applyStringConfig(cmd, "mistake-mode", &testMistakeMode, fileCfg.Test.MistakeMode)
	applyBoolConfig(cmd, "sound", &testSound, fileCfg.Test.Sound)

	level, err := parseLevel(testLevel)
	if err != nil {
		return err
	}
	mode, err := parseMistakeMode(testMistakeMode)
	if err != nil {
		return err
	}

	gen, err := newGenerator(testLang)
	if err != nil {
		return err
	}
	var text string
	if level == model.LevelTime {
		text, err = gen.TimedText(testLang, testTimeSeconds)
	} else {
		text, err = gen.Generate(level, testLang, testWords)
	}
	if err != nil {
		return fmt.Errorf("failed to generate text: %w", err)
	}

	cfg := engine.Config{
		Level:       level,
		Text:        text,
		Language:    testLang,
		MistakeMode: mode,
		Feedback:    feedbackSink(testSound),
	}
	if level == model.LevelTime {
		cfg.TimeLimitSeconds = testTimeSeconds
	} else {
		cfg.WordCount = testWords
	}
	return runAttempt(cfg)
}

func newPracticeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Practice the words you keep missing",
		Args:  cobra.NoArgs,
		RunE:  runPracticeCmd,
	}
	cmd.Flags().IntVar(&practiceWords, "words", defaultWords, "words per text")
	cmd.Flags().IntVar(&practiceWeakTop, "weak-top", defaultWeakTop, "number of missed words to focus on")
	cmd.Flags().Float64Var(&practiceWeakFactor, "weak-factor", defaultWeakFactor, "weight factor for missed words")
	cmd.Flags().IntVar(&practiceWeakWindow, "weak-window", defaultWeakWindow, "number of recent tests to scan")
	return cmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "words", &practiceWords, fileCfg.Practice.Words)
	applyIntConfig(cmd, "weak-top", &practiceWeakTop, fileCfg.Practice.WeakTop)
	applyFloatConfig(cmd, "weak-factor", &practiceWeakFactor, fileCfg.Practice.WeakFactor)
	applyIntConfig(cmd, "weak-window", &practiceWeakWindow, fileCfg.Practice.WeakWindow)

	lang := defaultLang
	if fileCfg.Test.Lang != nil {
		lang = *fileCfg.Test.Lang
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	missed, err := st.WrongWords(context.Background(), practiceWeakWindow)
	closeStore(st)
	if err != nil {
		return fmt.Errorf("failed to load missed words: %w", err)
	}
	if len(missed) == 0 {
		logErrln("no missed words recorded yet; using a normal text")
	}

	gen, err := newGenerator(lang)
	if err != nil {
		return err
	}
	focus := stats.SelectMissedWords(missed, practiceWeakTop)
	text, err := gen.PracticeText(lang, practiceWords, focus, practiceWeakFactor)
	if err != nil {
		return fmt.Errorf("failed to generate text: %w", err)
	}

	return runAttempt(engine.Config{
		Level:     model.LevelSimple,
		Text:      text,
		WordCount: practiceWords,
		Language:  lang,
	})
}

// runAttempt opens the store, runs the typing TUI, and shows the
// results screen when the attempt completes.
func runAttempt(cfg engine.Config) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	user, err := identity.NewLocalProvider(st).Current(context.Background())
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}
	m := tui.NewModel(eng, &tui.Saver{Store: st, User: user})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if err := m.SaveErr(); err != nil {
		return err
	}
	outcome, ok := m.Outcome()
	if !ok {
		return nil
	}
	return showResults(outcome, false)
}

func showResults(outcome tui.Outcome, startReplay bool) error {
	m := resultsui.NewModel(outcome, analysis.NewCLIAnalyzer())
	if startReplay {
		m.ShowReplay()
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run results TUI: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show history and learning curves",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsLevel, "level", "", "difficulty filter")
	cmd.Flags().StringVar(&statsLang, "lang", "", "language filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N tests")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	filter := model.HistoryFilter{
		Language: statsLang,
		Last:     statsLast,
	}
	if statsLevel != "" {
		level, err := parseLevel(statsLevel)
		if err != nil {
			return err
		}
		filter.Level = level
	}
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	report, err := stats.BuildReport(context.Background(), st, stats.ReportConfig{
		Filter:          filter,
		LeaderboardSize: defaultTop,
		MissedWindow:    defaultWeakWindow,
		MissedTop:       defaultWeakTop,
	})
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report.History); err != nil {
		return err
	}
	if err := stats.RenderCurves(out, report.History, defaultCurveWindow); err != nil {
		return err
	}
	if err := stats.RenderHistoryTable(out, report.History); err != nil {
		return err
	}
	if err := stats.RenderWrongWords(out, report.MissedWords); err != nil {
		return err
	}
	return stats.RenderLeaderboard(out, report.Leaderboard)
}

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top scores",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCmd,
	}
	cmd.Flags().IntVar(&leaderboardTop, "top", defaultTop, "number of entries")
	return cmd
}

func runLeaderboardCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	entries, err := st.TopLeaderboard(context.Background(), leaderboardTop)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return stats.RenderLeaderboard(cmd.OutOrStdout(), entries)
}

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay [id]",
		Short: "Replay a saved attempt keystroke by keystroke",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runReplayCmd,
	}
}

func runReplayCmd(_ *cobra.Command, args []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	ctx := context.Background()
	var id int64
	if len(args) == 1 {
		id, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid result id %q", args[0])
		}
	} else {
		history, err := st.ListHistory(ctx, model.HistoryFilter{Last: 1})
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if len(history) == 0 {
			return fmt.Errorf("no saved attempts to replay")
		}
		id = history[len(history)-1].ID
	}

	result, err := st.LoadResult(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load result %d: %w", id, err)
	}
	return showResults(tui.Outcome{ResultID: id, Result: result}, true)
}

func newDuelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duel",
		Short: "Race another player through a relay",
	}
	cmd.PersistentFlags().StringVar(&duelRelayURL, "relay", defaultRelayURL, "relay WebSocket URL")

	create := &cobra.Command{
		Use:   "create <opponent>",
		Short: "Challenge a player by name",
		Args:  cobra.ExactArgs(1),
		RunE:  runDuelCreateCmd,
	}
	create.Flags().IntVar(&duelWords, "words", defaultWords, "race length in words")

	join := &cobra.Command{
		Use:   "join <match-id>",
		Short: "Join a match you were challenged to",
		Args:  cobra.ExactArgs(1),
		RunE:  runDuelJoinCmd,
	}

	cmd.AddCommand(create)
	cmd.AddCommand(join)
	return cmd
}

func runDuelCreateCmd(cmd *cobra.Command, args []string) error {
	coord, cleanup, err := dialDuel(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	opponent := match.Player{ID: args[0], Name: args[0]}
	rec, err := coord.Create(context.Background(), opponent, duelWords)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	logErrf("match %s created; your opponent joins with: keyduel duel join %s\n", rec.ID, rec.ID)
	return runDuelUI(coord, rec)
}

func runDuelJoinCmd(cmd *cobra.Command, args []string) error {
	coord, cleanup, err := dialDuel(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := coord.Load(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load match %s: %w", args[0], err)
	}
	return runDuelUI(coord, rec)
}

// dialDuel resolves the player identity, applies config, and connects
// to the relay. Duels require a display name because match records
// identify players by it.
func dialDuel(cmd *cobra.Command) (*match.Coordinator, func(), error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "relay", &duelRelayURL, fileCfg.Duel.RelayURL)

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	user, err := identity.NewLocalProvider(st).Current(context.Background())
	closeStore(st)
	if err != nil {
		return nil, nil, err
	}
	name := user.DisplayName
	if fileCfg.Duel.Name != nil && *fileCfg.Duel.Name != "" {
		name = *fileCfg.Duel.Name
	}
	if name == "" {
		return nil, nil, fmt.Errorf("duels need a display name; set one with: keyduel name <name>")
	}

	lang := defaultLang
	if fileCfg.Test.Lang != nil {
		lang = *fileCfg.Test.Lang
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	remote, err := docstore.Dial(ctx, duelRelayURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reach relay at %s: %w", duelRelayURL, err)
	}

	gen, err := newGenerator(lang)
	if err != nil {
		_ = remote.Close()
		return nil, nil, err
	}
	self := match.Player{ID: name, Name: name}
	coord := match.NewCoordinator(remote, gen, self, lang)
	cleanup := func() {
		if cerr := remote.Close(); cerr != nil {
			logErrf("failed to close relay connection: %v\n", cerr)
		}
	}
	return coord, cleanup, nil
}

func runDuelUI(coord *match.Coordinator, rec model.Match) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := coord.Watch(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to watch match: %w", err)
	}

	m := duelui.NewModel(coord, rec, updates)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run duel TUI: %w", err)
	}
	return m.Err()
}

func newNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "name [display-name]",
		Short: "Show or set your display name",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runNameCmd,
	}
}

func runNameCmd(cmd *cobra.Command, args []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	ctx := context.Background()
	provider := identity.NewLocalProvider(st)
	if len(args) == 1 {
		return provider.SetDisplayName(ctx, args[0])
	}
	user, err := provider.Current(ctx)
	if err != nil {
		return err
	}
	if user.Anonymous {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "(anonymous)")
	} else {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), user.DisplayName)
	}
	return err
}

func newLangsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "langs",
		Short: "List available word list languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, lang := range wordlist.Languages() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), lang); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newGenerator(lang string) (*generator.Generator, error) {
	gen := generator.New()
	pool, err := wordlist.Resolve(config.ConfigDir(), lang)
	if err != nil {
		return nil, fmt.Errorf("failed to load word list: %w", err)
	}
	gen.SetPool(lang, pool)
	return gen, nil
}

func parseLevel(s string) (model.DifficultyLevel, error) {
	switch model.DifficultyLevel(s) {
	case model.LevelSimple, model.LevelIntermediate, model.LevelExpert, model.LevelMixed, model.LevelTime:
		return model.DifficultyLevel(s), nil
	}
	return "", fmt.Errorf("unknown level %q (simple, intermediate, expert, mixed, time)", s)
}

func parseMistakeMode(s string) (model.MistakeMode, error) {
	switch model.MistakeMode(s) {
	case model.ModeDefault, model.ModePro, model.ModeGod:
		return model.MistakeMode(s), nil
	}
	return "", fmt.Errorf("unknown mistake mode %q (default, pro, god)", s)
}

func feedbackSink(sound bool) feedback.Sink {
	if sound {
		return feedback.Bell{}
	}
	return feedback.Silent{}
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# keyduel configuration
# Uncomment a value to enable it. CLI flags override config values.

[test]
# level = %q          # Difficulty (simple, intermediate, expert, mixed, time)
# lang = %q              # Language code
# words = %d              # Words per test
# time = %d               # Seconds for the time level
# mistake-mode = %q # Mistake tolerance (default, pro, god)
# sound = false            # Ring the terminal bell on mistakes

[duel]
# name = "your-name"       # Display name used in duels
# relay-url = %q

[practice]
# words = %d              # Words per practice text
# weak-top = %d           # Number of missed words to focus on
# weak-factor = %.1f      # Weight factor for missed words
# weak-window = %d        # Number of recent tests to scan
`,
		defaultLevel,
		defaultLang,
		defaultWords,
		defaultTimeSeconds,
		defaultMistakeMode,
		defaultRelayURL,
		defaultWords,
		defaultWeakTop,
		defaultWeakFactor,
		defaultWeakWindow,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
