package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/paulmach/orb/maptile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	pb "gopkg.in/cheggaaa/pb.v1"
)

var (
	configPath  string
	logLevel    string
	headerLines []string
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:          "tileserver",
		Short:        "Serve map tiles and UTFGrids from a directory of .mbtiles files",
		Version:      "0.1.0",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := InitConf(v, configPath)
			if err != nil {
				return err
			}
			if err := InitLog(c, logLevel); err != nil {
				return err
			}
			conf = c
			return nil
		},
		RunE: runServe,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "set config `file` (toml)")
	pf.StringVarP(&logLevel, "log-level", "l", "info", "set log level")
	pf.StringP("directory", "d", "./tiles", "tiles `directory`")
	v.BindPFlag("server.directory", pf.Lookup("directory"))

	f := rootCmd.Flags()
	f.IntP("port", "p", 3000, "server port")
	f.StringSlice("allowed-hosts", []string{"*"}, "allowed Host header values, * allows all")
	f.Bool("cors", true, "send CORS headers")
	f.StringArrayVarP(&headerLines, "header", "H", nil, "add custom response header `\"Name: value\"`")
	v.BindPFlag("server.port", f.Lookup("port"))
	v.BindPFlag("server.allowedHosts", f.Lookup("allowed-hosts"))
	v.BindPFlag("server.cors", f.Lookup("cors"))

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "Scan the tiles directory and list the tilesets found",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	rootCmd.AddCommand(lsCmd)
	return rootCmd
}

func runServe(cmd *cobra.Command, args []string) error {
	headers, err := parseHeaders(headerLines)
	if err != nil {
		return err
	}
	for k, v := range conf.Server.Headers {
		if _, ok := headers[k]; !ok {
			headers[k] = v
		}
	}

	log.Infof("%s %s", conf.App.Title, conf.App.Version)
	start := time.Now()
	index, skipped, err := BuildIndex(cmd.Context(), conf.Server.Directory, nil)
	if err != nil {
		return err
	}
	log.Infof("serving %d tilesets from %s (%d skipped), %.3fs",
		index.Len(), conf.Server.Directory, len(skipped), time.Since(start).Seconds())

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", conf.Server.Port),
		Handler: NewServer(index, ServerOptions{
			AllowedHosts: conf.Server.AllowedHosts,
			Headers:      headers,
			CORS:         conf.Server.CORS,
		}).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	exit := NewSafeExit()
	exit.Register(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("shutdown error ~ %s", err)
		}
		log.Infof("服务已安全退出")
	})
	go exit.ListenSignal()

	log.Infof("listening on http://localhost:%d", conf.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-exit.Done()
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	dir := conf.Server.Directory
	bar := pb.New(CountArchives(dir)).Prefix("Scan ")
	bar.Output = cmd.ErrOrStderr()
	bar.Start()
	index, skipped, err := BuildIndex(cmd.Context(), dir, func(string) { bar.Increment() })
	bar.Finish()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFORMAT\tGRID\tSAMPLE")
	for _, id := range index.IDs() {
		meta, _ := index.Get(id)
		grid := "-"
		if meta.GridFormat != nil {
			grid = meta.GridFormat.String()
		}
		sample := GetTileURL(tileTemplate("", id, meta.TileFormat), maptile.New(0, 0, 0))
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, meta.TileFormat, grid, sample)
	}
	tw.Flush()

	for _, s := range skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s\n", s)
	}
	return nil
}
