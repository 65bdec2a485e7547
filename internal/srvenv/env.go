package srvenv

import (
	"context"

	"trendspotter/internal/analyze"
	"trendspotter/internal/database"
	"trendspotter/internal/reports"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	database *database.DB
	archive  analyze.Archiver
	finder   reports.Finder
	narrator analyze.Narrator
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

func (s *SrvEnv) Archive() analyze.Archiver {
	return s.archive
}

func (s *SrvEnv) Finder() reports.Finder {
	return s.finder
}

func (s *SrvEnv) Narrator() analyze.Narrator {
	return s.narrator
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		return s
	}
}

func WithArchive(archive analyze.Archiver) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.archive = archive
		return s
	}
}

func WithFinder(finder reports.Finder) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.finder = finder
		return s
	}
}

func WithNarrator(narrator analyze.Narrator) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.narrator = narrator
		return s
	}
}

func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.database != nil {
		return s.database.Close(ctx)
	}
	return nil
}
