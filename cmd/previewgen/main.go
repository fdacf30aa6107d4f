package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/avelsher/previewgen/internal/asset"
	"github.com/avelsher/previewgen/internal/config"
	"github.com/avelsher/previewgen/internal/database"
	"github.com/avelsher/previewgen/internal/queue"
	"github.com/avelsher/previewgen/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "previewgen: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "previewgen",
		Short: "previewgen ops CLI",
		Long: `previewgen CLI drives the derived-artifact pipeline by hand: register an asset,
enqueue its JPEG stage and inspect the stored record while the workers run.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newRegisterCmd(),
		newEnqueueCmd(),
		newGetCmd(),
	)
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var userID, deviceID, kind string
	cmd := &cobra.Command{
		Use:   "register <original-path>",
		Short: "Register an asset row for an existing media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			originalPath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			k := asset.Kind(strings.ToUpper(kind))
			if k != asset.KindImage && k != asset.KindVideo {
				return fmt.Errorf("kind must be IMAGE or VIDEO, got %q", kind)
			}

			_, pool, repo, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			a := &asset.Asset{
				ID:           uuid.New(),
				UserID:       userID,
				DeviceID:     deviceID,
				Kind:         k,
				OriginalPath: originalPath,
				CreatedAt:    time.Now().UTC(),
			}
			if err := repo.Create(ctx, a); err != nil {
				return err
			}
			fmt.Println(a.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "Owning user id")
	cmd.Flags().StringVarP(&deviceID, "device", "d", "", "Originating device id")
	cmd.Flags().StringVarP(&kind, "kind", "k", "IMAGE", "Asset kind (IMAGE or VIDEO)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("device")
	return cmd
}

func newEnqueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue <asset-id>",
		Short: "Enqueue the JPEG stage for a registered asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse asset id: %w", err)
			}

			cfg, pool, repo, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			a, err := repo.Get(ctx, id)
			if err != nil {
				return err
			}

			client := queue.NewClient(asynq.RedisClientOpt{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			defer client.Close()

			jobID, err := client.EnqueueJPEG(ctx, *a)
			if err != nil {
				return err
			}
			fmt.Printf("enqueued jpeg stage for %s (job %s)\n", a.ID, jobID)
			return nil
		},
	}
	return cmd
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <asset-id>",
		Short: "Print the stored asset record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse asset id: %w", err)
			}

			_, pool, repo, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			a, err := repo.Get(ctx, id)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(a, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	return cmd
}

func openStore(ctx context.Context) (*config.Config, *pgxpool.Pool, *repository.AssetRepository, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	return cfg, pool, repository.NewAssetRepository(pool), nil
}
