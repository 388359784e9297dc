package cmd

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rubenv/planartopo/topology"
	"go.uber.org/zap"
)

type CmdServer struct {
	global *GlobalOptions

	Listen string `short:"l" long:"listen" description:"Listen address" default:":8080"`
}

func init() {
	_, err := parser.AddCommand("server",
		"Run topology server",
		"Run topology server\n\nServes metrics and TopoJSON exports",
		&CmdServer{global: &globalOpts})
	if err != nil {
		panic(err)
	}
}

func (cmd CmdServer) Usage() string {
	return ""
}

func (cmd CmdServer) Execute(args []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	store, err := cmd.global.OpenStore(topology.WithRegisterer(reg))
	if err != nil {
		return err
	}
	defer store.Close()

	log, err := cmd.global.Logger()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /topologies/{name}/topojson", func(w http.ResponseWriter, r *http.Request) {
		layers := make([]int, 0)
		if l := r.URL.Query().Get("layers"); l != "" {
			for _, s := range strings.Split(l, ",") {
				id, err := strconv.Atoi(s)
				if err != nil {
					http.Error(w, "invalid layer "+s, http.StatusBadRequest)
					return
				}
				layers = append(layers, id)
			}
		}

		topo, err := store.TopoJSON(r.Context(), r.PathValue("name"), layers...)
		switch {
		case errors.Is(err, topology.ErrUnknownTopology), errors.Is(err, topology.ErrUnknownLayer):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			log.Error("export failed", zap.String("topology", r.PathValue("name")), zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(topo)
	})

	log.Info("listening", zap.String("addr", cmd.Listen))
	return http.ListenAndServe(cmd.Listen, mux)
}
