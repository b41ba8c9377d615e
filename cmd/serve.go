package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/Zakonildo/Diffusion-Model/pkg/api"
	"github.com/Zakonildo/Diffusion-Model/pkg/diffusion"
	"github.com/Zakonildo/Diffusion-Model/pkg/unet"
)

// NewServeCommand returns a new serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve image generation over HTTP",
		Long: `
Serve image generation over HTTP. POST /v1/generate with a JSON body
{"n": 4, "seed": 42} returns the generated batch as a base64 PNG strip.
	`,
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := newScheduleFromArgs()
			if err != nil {
				return err
			}
			model, err := unet.LoadFile(RootArgs.modelPath)
			if err != nil {
				return fmt.Errorf("failed to load checkpoint: %w", err)
			}
			sampler, err := diffusion.NewSampler(schedule, model.Config.Channels, model.Config.ImgSize)
			if err != nil {
				return err
			}

			server := api.NewServer(sampler, model)
			e := echo.New()
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", RootArgs.addr)
			sc := echo.StartConfig{
				Address: RootArgs.addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = 30 * time.Second
					return nil
				},
			}
			return sc.Start(cmd.Context(), e)
		},
	}

	cmd.Flags().
		StringVar(&RootArgs.addr, "addr", "127.0.0.1:8080", "Listen address")
	return cmd
}
