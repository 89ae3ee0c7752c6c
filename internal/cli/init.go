package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/schemata/internal/paths"
	"github.com/mesh-intelligence/schemata/internal/sqlite"
)

// initReport is what init prints in --json mode.
type initReport struct {
	ConfigDir string `yaml:"config_dir" json:"config_dir"`
	DataDir   string `yaml:"data_dir" json:"data_dir"`
	Backend   string `yaml:"backend" json:"backend"`
	Sync      string `yaml:"sync_strategy" json:"sync_strategy"`
}

func newInitCmd() *cobra.Command {
	var userData bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize schemata storage",
		Long: "Create the configuration and data directories, then initialize the metadata store.\n" +
			"An explicit --data-dir, or the platform data directory chosen with --user-data,\n" +
			"is recorded in config.yaml for later runs.",
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, userData)
		},
	}
	cmd.Flags().BoolVar(&userData, "user-data", false, "keep the store in the platform data directory (e.g. ~/.local/share/schemata)")
	return cmd
}

func runInit(cmd *cobra.Command, userData bool) error {
	if userData && flags.dataDir != "" {
		return usagef("--user-data and --data-dir are mutually exclusive")
	}
	cfg, err := resolveSettings()
	if err != nil {
		return err
	}

	if userData {
		dir, err := paths.DefaultDataDir()
		if err != nil {
			return fmt.Errorf("platform data dir: %w", err)
		}
		cfg.store.DataDir = dir
	}
	if userData || flags.dataDir != "" {
		if err := recordDataDir(cfg.configDir, cfg.store.DataDir); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	}

	store := sqlite.NewBackend()
	if err := store.Attach(cfg.store); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if err := store.Detach(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	report := initReport{
		ConfigDir: cfg.configDir,
		DataDir:   cfg.store.DataDir,
		Backend:   cfg.store.Backend,
		Sync:      cfg.store.EffectiveSyncStrategy(),
	}
	a := &app{cmd: cmd, cfg: cfg}
	return a.emit(report, func(w io.Writer) {
		fmt.Fprintln(w, "schemata initialized")
		out, err := yaml.Marshal(&report)
		if err == nil {
			fmt.Fprint(w, string(out))
		}
	})
}

// recordDataDir sets data_dir in config.yaml, keeping the other keys.
func recordDataDir(configDir, dataDir string) error {
	path := filepath.Join(configDir, configFileExt)
	doc := map[string]any{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	doc[cfgKeyDataDir] = dataDir
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}
