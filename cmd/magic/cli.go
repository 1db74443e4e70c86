package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/RTimothyEdwards/magic-core/pkg/elog"
)

var log elog.View

var (
	flagVerbose bool
	flagDebug   bool
	flagJSON    bool
	flagTechDir []string
)

var rootCmd = &cobra.Command{
	Use:   "magic",
	Short: "Command-line interface to the layout engines",
	Long: `magic drives the technology-file loader, the CIF operator engine,
the GDS-II stream reader, and the resistance extractor from the
command line.`,
}

// commandInit wires persistent flags, the logger, and the full
// subcommand tree. Run once from main before rootCmd.Execute.
func commandInit() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "enable json output")
	rootCmd.PersistentFlags().StringSliceVar(&flagTechDir, "techdir", nil, "additional technology-file search directories")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger := &elog.CLI{}
		if flagJSON {
			logger.DisableTTY = true
			logrus.SetFormatter(&logrus.JSONFormatter{})
		} else {
			logrus.SetFormatter(logger)
		}
		logrus.SetLevel(logrus.TraceLevel)
		if flagDebug {
			logger.IsDebug = true
			logger.IsVerbose = true
		} else if flagVerbose {
			logger.IsVerbose = true
		}
		log = logger
		return nil
	}

	rootCmd.AddCommand(techCmd)
	rootCmd.AddCommand(gdsCmd)
	rootCmd.AddCommand(cifCmd)
	rootCmd.AddCommand(extractCmd)

	techCmd.AddCommand(techLoadCmd)
	gdsCmd.AddCommand(gdsReadCmd)
	cifCmd.AddCommand(cifEvalCmd)
	extractCmd.AddCommand(extractNetCmd)
}

var techCmd = &cobra.Command{Use: "tech", Short: "Technology-file operations"}
var gdsCmd = &cobra.Command{Use: "gds", Short: "GDS-II stream operations"}
var cifCmd = &cobra.Command{Use: "cif", Short: "CIF layer-generation operations"}
var extractCmd = &cobra.Command{Use: "extract", Short: "Resistance extraction operations"}

func homeSearchPath() []string {
	paths := append([]string(nil), flagTechDir...)
	if home, err := homeDir(); err == nil {
		paths = append(paths, home+"/.magic/tech")
	}
	return paths
}
