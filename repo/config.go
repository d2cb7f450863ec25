package repo

import (
	"fmt"
	"github.com/bitcr/pocketd/version"
	"github.com/btcsuite/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/natefinch/lumberjack"
	"github.com/op/go-logging"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	defaultConfigFilename = "pocketd.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "pocketd.log"
	defaultGatewayAddr    = "127.0.0.1:8480"
)

var (
	defaultHomeDir    = btcutil.AppDataDir("pocketd", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)

	fileLogFormat   = logging.MustStringFormatter(`%{time:2006-01-02T15:04:05} [%{level}] [%{module}] %{message}`)
	stdoutLogFormat = logging.MustStringFormatter(`%{color:reset}%{color}%{time:15:04:05.000} [%{level}] [%{module}] %{message}`)
)

// Config defines the configuration options for pocketd.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	ShowVersion   bool     `short:"v" long:"version" description:"Display version information and exit"`
	ConfigFile    string   `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir       string   `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir        string   `long:"logdir" description:"Directory to log output."`
	LogLevel      string   `short:"l" long:"loglevel" description:"set the logging level [debug, info, notice, warning, error, critical]" default:"info"`
	GatewayAddr   string   `long:"gatewayaddr" description:"Override the default gateway address with the provided value"`
	AllowedOrigin string   `long:"allowedorigin" description:"Set the allowed origin header on gateway responses"`
	MintTimeout   uint     `long:"minttimeout" description:"Timeout in seconds for requests made to the mint" default:"30"`
	NoGateway     bool     `long:"nogateway" description:"Do not run the JSON API gateway"`
	APINoCors     bool     `long:"apinocors" description:"Disable CORS headers on gateway responses"`
	APIAllowedIPs []string `long:"apiallowedip" description:"Only allow API connections from these IP addresses"`
	APIUsername   string   `long:"apiusername" description:"The username to use with the gateway's basic authentication"`
	APIPassword   string   `long:"apipassword" description:"The password to use with the gateway's basic authentication"`
	APICookie     string   `long:"apicookie" description:"A cookie to use for gateway authentication. If set requests must contain this cookie"`
	UseSSL        bool     `long:"ssl" description:"Use SSL on the gateway"`
	SSLCertFile   string   `long:"sslcertfile" description:"Path to the SSL certificate file"`
	SSLKeyFile    string   `long:"sslkeyfile" description:"Path to the SSL key file"`
}

// DefaultHomeDir is the default data directory used by pocketd.
var DefaultHomeDir = defaultHomeDir

// LoadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
// 	1) Start with a default config with sane settings
// 	2) Pre-parse the command line to check for an alternative config file
// 	3) Load configuration file overwriting defaults with any specified options
// 	4) Parse CLI options and overwrite/add any specified options
//
// The above results in pocketd functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func LoadConfig() (*Config, []string, error) {
	// Default config.
	cfg := Config{
		DataDir:     defaultHomeDir,
		ConfigFile:  defaultConfigFile,
		LogDir:      defaultLogDir,
		GatewayAddr: defaultGatewayAddr,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&cfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version.String())
		os.Exit(0)
	}

	// Load additional config from file.
	var configFileError error
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := os.Stat(preCfg.ConfigFile); os.IsNotExist(err) {
		err := createDefaultConfigFile(preCfg.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating a "+
				"default config file: %v\n", err)
		}
	}

	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config "+
				"file: %v\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}
		configFileError = err
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)

	setupLogging(cfg.LogDir, cfg.LogLevel)

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid
	// options.  Note this should go directly before the return.
	if configFileError != nil {
		log.Warningf("%v", configFileError)
	}
	return &cfg, nil, nil
}

// createDefaultConfigFile writes the sample config to the given destination
// path so the user has a commented reference for the available options.
func createDefaultConfigFile(destinationPath string) error {
	// Create the destination directory if it does not exists
	err := os.MkdirAll(filepath.Dir(destinationPath), 0700)
	if err != nil {
		return err
	}

	dest, err := os.OpenFile(destinationPath,
		os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dest.Close()

	_, err = dest.WriteString(sampleConfig)
	return err
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

func setupLogging(logDir, logLevel string) {
	backendStdout := logging.NewLogBackend(os.Stdout, "", 0)
	backendStdoutFormatter := logging.NewBackendFormatter(backendStdout, stdoutLogFormat)

	if logDir != "" {
		rotator := &lumberjack.Logger{
			Filename:   path.Join(logDir, defaultLogFilename),
			MaxSize:    10, // Megabytes
			MaxBackups: 3,
			MaxAge:     30, // Days
		}

		backendFile := logging.NewLogBackend(rotator, "", 0)
		backendFileFormatter := logging.NewBackendFormatter(backendFile, fileLogFormat)
		logging.SetBackend(backendStdoutFormatter, backendFileFormatter)
	} else {
		logging.SetBackend(backendStdoutFormatter)
	}

	var level logging.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = logging.DEBUG
	case "info":
		level = logging.INFO
	case "notice":
		level = logging.NOTICE
	case "warning":
		level = logging.WARNING
	case "error":
		level = logging.ERROR
	case "critical":
		level = logging.CRITICAL
	default:
		level = logging.INFO
	}
	logging.SetLevel(level, "")
}

const sampleConfig = `; The directory to store data such as the pocketd database.
; The default is ~/.pocketd on POSIX OSes.
; datadir=~/.pocketd

; Directory to log output.
; logdir=~/.pocketd/logs

; Debug logging level.
; Valid levels are {debug, info, notice, warning, error, critical}
; loglevel=info

; The interface and port to run the JSON API gateway on.
; gatewayaddr=127.0.0.1:8480

; Set the allowed origin header returned by the gateway. Needed if
; the API is accessed from a browser on a different origin.
; allowedorigin=*

; Timeout in seconds for requests made to the mint.
; minttimeout=30

; Disable the JSON API gateway entirely.
; nogateway=0

; Authentication options for the gateway. If a username and password
; are set the gateway requires basic authentication. If a cookie is set
; requests must carry it in the Pocketd_Auth_Cookie cookie.
; apiusername=
; apipassword=
; apicookie=

; Only allow API connections from these IPs.
; apiallowedip=127.0.0.1

; Serve the gateway over SSL.
; ssl=0
; sslcertfile=
; sslkeyfile=
`
