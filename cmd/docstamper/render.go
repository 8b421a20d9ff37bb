package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/grahms/docstamper"
	"github.com/grahms/docstamper/document"
)

type renderOptions struct {
	template string
	data     string
	out      string
	lenient  bool
	watch    bool
}

func (a *app) renderCmd() *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a template with YAML data",
		Example: `  docstamper render --template letter.xml --data people.yaml --out letters.xml
  docstamper render -t letter.xml -d people.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := newEngine(a.logger, opts.lenient)
			if opts.watch {
				return a.watch(cmd.Context(), engine, opts, cmd.OutOrStdout())
			}
			return render(engine, opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.template, "template", "t", "", "template document (XML)")
	f.StringVarP(&opts.data, "data", "d", "", "YAML file holding the template data")
	f.StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	f.BoolVar(&opts.lenient, "lenient", false, "leave unresolved expressions in place instead of failing")
	f.BoolVarP(&opts.watch, "watch", "w", false, "render again whenever the template or the data changes")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func newEngine(logger *zap.Logger, lenient bool) *docstamper.Engine {
	reg := docstamper.NewRegistry()
	reg.MustRegister(docstamper.LoopCapability, docstamper.NewLoopProcessor())
	reg.MustRegister(docstamper.ReplaceWithCapability, docstamper.NewReplaceWithProcessor())

	engine := docstamper.NewEngine(reg, docstamper.WithLogger(logger))
	engine.SetFailOnInvalidExpression(!lenient)
	return engine
}

func loadData(path string) (map[string]any, error) {
	data := map[string]any{}
	if path == "" {
		return data, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return data, nil
}

func render(engine *docstamper.Engine, opts renderOptions, stdout io.Writer) error {
	data, err := loadData(opts.data)
	if err != nil {
		return err
	}

	f, err := os.Open(opts.template)
	if err != nil {
		return err
	}
	doc, err := document.Load(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.template, err)
	}

	if err := engine.Run(doc, data); err != nil {
		return fmt.Errorf("render %s: %w", opts.template, err)
	}

	if opts.out == "" {
		return document.Save(stdout, doc)
	}
	var buf bytes.Buffer
	if err := document.Save(&buf, doc); err != nil {
		return err
	}
	return os.WriteFile(opts.out, buf.Bytes(), 0o644)
}

// watch renders once, then again on every write to the template or data
// file, until ctx is done. Render failures are logged and do not stop the
// loop.
func (a *app) watch(ctx context.Context, engine *docstamper.Engine, opts renderOptions, stdout io.Writer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Editors often replace files instead of writing them, so the parent
	// directories are watched and events filtered by name.
	watched := make(map[string]bool)
	for _, p := range []string{opts.template, opts.data} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = true
		if err := w.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}

	a.renderLogged(engine, opts, stdout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watched[ev.Name] || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			a.logger.Debug("change detected", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
			a.renderLogged(engine, opts, stdout)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (a *app) renderLogged(engine *docstamper.Engine, opts renderOptions, stdout io.Writer) {
	if err := render(engine, opts, stdout); err != nil {
		a.logger.Error("render failed", zap.String("template", opts.template), zap.Error(err))
		return
	}
	a.logger.Info("rendered", zap.String("template", opts.template), zap.String("out", opts.out))
}
