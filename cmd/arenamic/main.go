package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"arenamic/internal/bootstrap"
	"arenamic/internal/domain"
)

var (
	version  = "0.1.0"
	cfgFile  string
	seconds  int
	savePath string
)

var rootCmd = &cobra.Command{
	Use:   "arenamic",
	Short: "arenamic voice capture tools",
	Long:  `arenamic - headless diagnostics for the debate arena voice client`,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Print the capture capability report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe(cmd.Context())
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one capture and transcribe it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecord(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the debate server voice status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("arenamic v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/arenamic/config.yaml)")
	recordCmd.Flags().IntVar(&seconds, "seconds", 5, "recording length; Ctrl-C stops early")
	recordCmd.Flags().StringVar(&savePath, "save", "", "write the captured audio to this file")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runProbe(ctx context.Context) error {
	services, err := bootstrap.Build(ctx, cfgFile, newConsoleSink(os.Stdout))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer services.Close()

	encoded, err := json.MarshalIndent(services.Report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	if !services.Report.VoiceCaptureFeasible() {
		fmt.Println("Voice capture: unavailable")
	} else {
		fmt.Println("Voice capture: available")
	}
	return nil
}

func runStatus(ctx context.Context) error {
	services, err := bootstrap.Build(ctx, cfgFile, newConsoleSink(os.Stdout))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer services.Close()

	status, err := services.Server.VoiceStatus(ctx)
	if err != nil {
		fmt.Println("Status: Could not check voice status")
		return err
	}
	fmt.Printf("Server: %s\n", services.Config.Server.BaseURL)
	fmt.Printf("Voice recording: %t\n", status.RecordingEnabled())
	fmt.Printf("Text to speech: %t\n", status.TTSAvailable)
	return nil
}

func runRecord(ctx context.Context) error {
	if seconds <= 0 {
		return errors.New("--seconds must be positive")
	}

	services, err := bootstrap.Build(ctx, cfgFile, newConsoleSink(os.Stdout))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer services.Close()

	controller := services.Controller
	if err := controller.Begin(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}

	// The capture was started under ctx; finish it even after Ctrl-C.
	result, err := controller.End(context.WithoutCancel(ctx))
	if err != nil {
		var captureErr *domain.CaptureError
		if errors.As(err, &captureErr) {
			return errors.New(captureErr.Reason.Guidance())
		}
		return err
	}

	if savePath != "" {
		if err := os.WriteFile(savePath, result.Payload.Bytes, 0o644); err != nil {
			return fmt.Errorf("failed to save capture: %w", err)
		}
		fmt.Printf("Saved %d bytes (%s) to %s\n", result.Payload.ByteLength, result.Payload.SourceEncoding, savePath)
	}
	fmt.Println(result.Text)
	return nil
}
