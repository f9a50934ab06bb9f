/*
rlsim runs small tabular reinforcement learning demos: cliff walking with
Q-learning or SARSA, value iteration on a grid with hazards and a prize, a
parking lot with switchable reward shaping, and a traffic light learning
to keep two queues short.

By default every demo in config.yaml is started as a session of a web server
that streams the learned tables over websocket and accepts control commands.
With -headless the demos are instead trained as fast as possible until the
configured training deadline, and the results printed to the console.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"rlsim/grid_world"
	"rlsim/reinforcement"
	"rlsim/server"
	"rlsim/simulation"
)

const (
	defaultFrame = 16 * time.Millisecond
	// Headless progress is logged every this many ticks, per engine.
	progressEvery = 20000
)

var (
	configPath = flag.String("config", "./config.yaml", "path to the demo config")
	headless   = flag.Bool("headless", false, "train without serving, then print the results")
	dbg        = flag.Bool("debug", false, "debug mode: log headless progress")
	host       = flag.String("host", "", "The host ip")
	port       = flag.String("port", "8080", "The host port")
)

func loadConfigs(path string) (*reinforcement.TrainingConfig, []simulation.Config, error) {
	trainingConfig, err := reinforcement.FromYaml(path)
	if err != nil {
		return nil, nil, err
	}

	configs := make([]simulation.Config, 0, len(trainingConfig.Demos))
	for i, spec := range trainingConfig.Demos {
		cfg, err := simulation.FromSpec(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("demo %d: %w", i, err)
		}
		configs = append(configs, cfg)
	}
	return trainingConfig, configs, nil
}

func runApp(ctx context.Context) error {
	trainingConfig, configs, err := loadConfigs(*configPath)
	if err != nil {
		return err
	}

	if *headless {
		return runHeadless(ctx, trainingConfig, configs)
	}

	frame, err := trainingConfig.Frame(defaultFrame)
	if err != nil {
		return err
	}

	srv := server.NewServer(ctx, *host+":"+*port, frame)
	for _, cfg := range configs {
		if _, _, err = srv.Start(cfg); err != nil {
			return err
		}
	}
	return srv.Serve()
}

func runHeadless(
	ctx context.Context,
	trainingConfig *reinforcement.TrainingConfig,
	configs []simulation.Config,
) error {
	engines := make([]*simulation.Engine, 0, len(configs))
	for _, cfg := range configs {
		engine, err := simulation.New(cfg)
		if err != nil {
			return err
		}
		engines = append(engines, engine)
	}

	trainingCtx, cancel, err := trainingConfig.WithTrainingDeadline(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	progress := func(p simulation.Progress) {
		if *dbg {
			log.Printf("%s/%s: tick %d, episodes %d, last return %.1f",
				p.State.Kind, p.State.Algorithm, p.State.Ticks, p.State.Episodes, p.State.LastReturn)
		}
	}
	if err = simulation.Train(trainingCtx, engines, progressEvery, progress); err != nil {
		return err
	}

	for _, engine := range engines {
		showState(engine.State())
	}
	return nil
}

// showState prints the outcome of a demo to the console.
func showState(state simulation.EngineState) {
	w := os.Stdout
	fmt.Fprintf(w, "\n%s/%s %s: %d ticks, %d transitions\n",
		state.Kind, state.Algorithm, state.RewardMode, state.Ticks, state.Transitions)

	if state.Traffic != nil {
		tr := state.Traffic
		fmt.Fprintf(w, "queues %v, favored %d, cars passed %d, decisions %d\n",
			tr.Queues, tr.Favored, tr.CarsPassed, tr.Decisions)
		for s, row := range state.QValues {
			fmt.Fprintf(w, "state %d: %v\n", s, row)
		}
		return
	}

	grid := grid_world.MustConvert(state.Layout)
	grid_world.ShowGrid(w, grid)
	if state.Values != nil {
		fmt.Fprintf(w, "last sweep delta %g\n", state.SweepDelta)
		grid_world.ShowValues(w, grid, state.Values)
		return
	}

	fmt.Fprintf(w, "episodes %d, last return %.1f, last length %d\n",
		state.Episodes, state.LastReturn, state.LastLength)
	grid_world.ShowValues(w, grid, grid_world.MaxValues(state.QValues))
	grid_world.ShowPolicy(w, grid, state.QValues)
	if state.Agent != nil {
		fmt.Fprintf(w, "agent at %v\n", *state.Agent)
	}
}

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := runApp(ctx)
	stop()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
