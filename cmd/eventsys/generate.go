package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/dshills/eventsys/internal/config"
	"github.com/dshills/eventsys/internal/gen"
	"github.com/dshills/eventsys/internal/gen/install"
	"github.com/dshills/eventsys/internal/logging"
	"github.com/dshills/eventsys/internal/manifest"
)

// runner generates the artifacts of one manifest. Every run uses a fresh
// generator and loader so a changed manifest never collides with types
// installed by an earlier run.
type runner struct {
	cfg      config.Config
	log      *logging.Logger
	manifest string
	out      io.Writer
	fs       afero.Fs

	// files are the paths the last successful run depended on.
	files []string
}

func (r *runner) filesystem() afero.Fs {
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	return r.fs
}

func (r *runner) generate(ctx context.Context) error {
	start := time.Now()
	fs := r.filesystem()

	doc, err := manifest.Load(fs, r.manifest)
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.manifest)
	r.files = append([]string{r.manifest}, doc.Files(dir)...)

	m, err := manifest.Build(fs, dir, doc)
	if err != nil {
		return err
	}
	defer m.Close()

	loader := install.NewLoader("eventsys", nil)
	g, err := gen.New(
		gen.WithConfig(r.cfg),
		gen.WithLogger(r.log),
		gen.WithLoader(loader),
		gen.WithDebugSink(install.NewDebugSink(fs, r.cfg.Debug.Dir)),
		gen.WithRegisterer(prometheus.NewRegistry()),
	)
	if err != nil {
		return err
	}
	defer g.Close(context.WithoutCancel(ctx))

	for _, reg := range m.Extensions {
		g.RegisterExtension(reg.Base, reg.Extension)
	}

	var errs []error
	for _, f := range m.Factories {
		if _, err := g.CreateFactoryAsync(ctx, f).Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, e := range m.Events {
		if _, err := g.CreateEventClassAsync(ctx, e.Type, e.AdditionalProperties, e.Extensions).Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	names := loader.Units()
	for _, name := range names {
		u, _ := loader.Unit(name)
		fmt.Fprintf(r.out, "%-9s %s\n", u.Kind(), name)
	}
	s := g.Stats()
	r.log.WithFields(map[string]any{
		"factories": s.Factories,
		"events":    s.EventClasses,
		"dir":       r.cfg.Debug.Dir,
	}).Info("generated %d artifacts in %s", len(names), time.Since(start).Round(time.Millisecond))
	return nil
}

// watch generates once and again after every change to the manifest or its
// scripts, until ctx is done. Failed runs are logged and do not stop the
// watch.
func (r *runner) watch(ctx context.Context) error {
	if err := r.generate(ctx); err != nil {
		r.log.Err(err, "generation failed")
	}

	w, err := manifest.NewWatcher(0)
	if err != nil {
		return err
	}
	defer w.Close()

	track := func() {
		files := r.files
		if len(files) == 0 {
			files = []string{r.manifest}
		}
		if err := w.Track(files...); err != nil {
			r.log.Err(err, "watching %s", r.manifest)
		}
	}
	track()
	r.log.Info("watching %s", r.manifest)

	return w.Run(ctx, func() {
		if err := r.generate(ctx); err != nil {
			r.log.Err(err, "generation failed")
		}
		track()
	}, func(err error) {
		r.log.Err(err, "watch error")
	})
}
