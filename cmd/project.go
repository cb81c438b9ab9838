package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/lenavs/internal/formatter"
	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/services"
	"github.com/desertthunder/lenavs/internal/shared"
	"github.com/urfave/cli/v3"
)

// backendErr signs the user out when the backend rejected the session.
func (r *Runner) backendErr(ctx context.Context, err error) error {
	if services.IsSessionInvalid(err) && r.account != nil {
		r.account.Invalidate(context.WithoutCancel(ctx))
	}
	return err
}

// editProject loads ref for the signed-in user, applies fn and saves the result.
func (r *Runner) editProject(ctx context.Context, ref string, fn func(*models.Project) error) (*models.Project, error) {
	_, session, err := r.requireSession(ctx)
	if err != nil {
		return nil, err
	}

	p, err := r.project(ref, session.User.ID)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := r.projects.Update(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ProjectNew creates a project for the signed-in user.
func (r *Runner) ProjectNew(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: project name", shared.ErrMissingArgument)
	}

	_, session, err := r.requireSession(ctx)
	if err != nil {
		return err
	}
	if r.projects == nil {
		return fmt.Errorf("%w: database not initialized", shared.ErrServiceUnavailable)
	}

	p := models.NewProject(0, session.User.ID, name)
	if err := applyProjectFlags(p, cmd); err != nil {
		return err
	}
	if err := r.projects.Create(p); err != nil {
		return err
	}

	r.logger.Info("project created", "id", p.ID(), "sequence", p.Sequence())
	return r.writePlain("✓ Created project #%d %q\n", p.Sequence(), p.Name)
}

// ProjectEdit changes project-level settings.
func (r *Runner) ProjectEdit(ctx context.Context, cmd *cli.Command) error {
	p, err := r.editProject(ctx, cmd.StringArg("project"), func(p *models.Project) error {
		if cmd.IsSet("name") {
			p.Name = strings.TrimSpace(cmd.String("name"))
		}
		if err := applyProjectFlags(p, cmd); err != nil {
			return err
		}
		return p.Validate()
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Updated project #%d %q\n", p.Sequence(), p.Name)
}

func applyProjectFlags(p *models.Project, cmd *cli.Command) error {
	if cmd.IsSet("audio") {
		switch a := models.AudioType(strings.ToLower(cmd.String("audio"))); a {
		case models.AudioOriginal, models.AudioInstrumental:
			p.AudioType = a
		default:
			return fmt.Errorf("%w: --audio must be original or instrumental", shared.ErrInvalidFlag)
		}
	}
	if cmd.IsSet("video-format") {
		p.VideoFormat = strings.ToLower(cmd.String("video-format"))
	}
	if cmd.IsSet("background") {
		p.BackgroundColor = cmd.String("background")
	}
	return nil
}

// ProjectList lists the signed-in user's projects.
func (r *Runner) ProjectList(ctx context.Context, cmd *cli.Command) error {
	_, session, err := r.requireSession(ctx)
	if err != nil {
		return err
	}
	if r.projects == nil {
		return fmt.Errorf("%w: database not initialized", shared.ErrServiceUnavailable)
	}

	projects, err := r.projects.List(map[string]any{"user_id": session.User.ID})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type row struct {
			Sequence int    `json:"sequence"`
			ID       string `json:"id"`
			Name     string `json:"name"`
			Stanzas  int    `json:"stanzas"`
			Audio    bool   `json:"has_audio"`
		}
		rows := make([]row, 0, len(projects))
		for _, p := range projects {
			rows = append(rows, row{p.Sequence(), p.ID(), p.Name, len(p.Stanzas), p.Media.HasAudio()})
		}
		return r.writeJSON(rows, true)
	}

	if len(projects) == 0 {
		return r.writePlain("No projects yet. Run 'lenavs project new <name>'\n")
	}

	r.writePlainHeader(fmt.Sprintf("Projects (%d)", len(projects)))
	for _, p := range projects {
		audio := "no audio"
		if p.Media.HasAudio() {
			audio = string(p.AudioType)
		}
		r.writePlain("#%-4d %-30s %3d stanzas  %s\n", p.Sequence(), p.Name, len(p.Stanzas), audio)
	}
	return nil
}

// ProjectShow renders a project in the requested format, to stdout or a file.
func (r *Runner) ProjectShow(ctx context.Context, cmd *cli.Command) error {
	_, session, err := r.requireSession(ctx)
	if err != nil {
		return err
	}

	p, err := r.project(cmd.StringArg("project"), session.User.ID)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteExport(p, format, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Written to %s\n", path)
	}

	data, err := formatter.Render(p, format)
	if err != nil {
		return err
	}
	r.output.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		r.output.Write([]byte("\n"))
	}
	return nil
}

// ProjectRemove soft-deletes a project.
func (r *Runner) ProjectRemove(ctx context.Context, cmd *cli.Command) error {
	_, session, err := r.requireSession(ctx)
	if err != nil {
		return err
	}

	p, err := r.project(cmd.StringArg("project"), session.User.ID)
	if err != nil {
		return err
	}
	if err := r.projects.Delete(p.ID()); err != nil {
		return err
	}
	return r.writePlain("✓ Removed project #%d %q\n", p.Sequence(), p.Name)
}

// ProjectLyrics splits lyrics into stanzas through the backend and replaces the project's stanzas.
//
// Exactly one of --file or --text is accepted.
func (r *Runner) ProjectLyrics(ctx context.Context, cmd *cli.Command) error {
	file, text := cmd.String("file"), cmd.String("text")
	switch {
	case file == "" && text == "":
		return fmt.Errorf("%w: either --file or --text must be provided", shared.ErrMissingArgument)
	case file != "" && text != "":
		return fmt.Errorf("%w: cannot specify both --file and --text", shared.ErrInvalidArgument)
	}

	p, err := r.editProject(ctx, cmd.StringArg("project"), func(p *models.Project) error {
		var result *services.LyricsResult
		var err error
		if file != "" {
			f, openErr := os.Open(file)
			if openErr != nil {
				return fmt.Errorf("%w: %v", shared.ErrInvalidInput, openErr)
			}
			defer f.Close()
			result, err = r.backend.UploadLyrics(ctx, filepath.Base(file), f)
		} else {
			result, err = r.backend.ProcessLyrics(ctx, text)
		}
		if err != nil {
			return r.backendErr(ctx, err)
		}
		if len(result.Stanzas) == 0 {
			return fmt.Errorf("%w: no stanzas found in lyrics", shared.ErrInvalidInput)
		}
		p.Stanzas = models.NewStanzas(result.Stanzas)
		return nil
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ %d stanzas loaded into %q\n", len(p.Stanzas), p.Name)
}

// StanzaAdd appends a stanza with default styling.
func (r *Runner) StanzaAdd(ctx context.Context, cmd *cli.Command) error {
	text := cmd.String("text")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: --text", shared.ErrMissingArgument)
	}

	var added models.Stanza
	_, err := r.editProject(ctx, cmd.StringArg("project"), func(p *models.Project) error {
		added = p.AddStanza(text)
		if err := applyStanzaFlags(&added, cmd); err != nil {
			return err
		}
		return p.UpdateStanza(added.ID, func(s *models.Stanza) { *s = added })
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Added stanza %d\n", added.ID)
}

// StanzaEdit changes the text, timing or style of one stanza.
func (r *Runner) StanzaEdit(ctx context.Context, cmd *cli.Command) error {
	id := int(cmd.Int("id"))
	_, err := r.editProject(ctx, cmd.StringArg("project"), func(p *models.Project) error {
		var flagErr error
		err := p.UpdateStanza(id, func(s *models.Stanza) {
			if cmd.IsSet("text") {
				s.Text = cmd.String("text")
			}
			flagErr = applyStanzaFlags(s, cmd)
		})
		if err != nil {
			return err
		}
		if flagErr != nil {
			return flagErr
		}
		return p.Validate()
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Updated stanza %d\n", id)
}

// StanzaRemove deletes one stanza.
func (r *Runner) StanzaRemove(ctx context.Context, cmd *cli.Command) error {
	id := int(cmd.Int("id"))
	_, err := r.editProject(ctx, cmd.StringArg("project"), func(p *models.Project) error {
		return p.RemoveStanza(id)
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Removed stanza %d\n", id)
}

func applyStanzaFlags(s *models.Stanza, cmd *cli.Command) error {
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"start", &s.StartTime},
		{"end", &s.EndTime},
	} {
		if !cmd.IsSet(f.name) {
			continue
		}
		seconds, err := shared.ParseTimestamp(cmd.String(f.name))
		if err != nil {
			return fmt.Errorf("--%s: %w", f.name, err)
		}
		*f.dst = shared.FormatTimestamp(seconds)
	}
	if cmd.IsSet("start") && !cmd.IsSet("end") {
		if start, end, err := s.Bounds(); err == nil && end < start {
			s.EndTime = s.StartTime
		}
	}

	if cmd.IsSet("color") {
		s.Color = cmd.String("color")
	}
	if cmd.IsSet("size") {
		s.FontSize = int(cmd.Int("size"))
	}
	if cmd.IsSet("align") {
		s.Alignment = strings.ToLower(cmd.String("align"))
	}
	if cmd.IsSet("transition") {
		s.Transition = cmd.String("transition")
	}
	return s.Validate()
}
