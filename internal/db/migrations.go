package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'job_status') THEN
			CREATE TYPE job_status AS ENUM ('pending', 'in_progress', 'completed', 'cancelled');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'job_priority') THEN
			CREATE TYPE job_priority AS ENUM ('low', 'medium', 'high', 'urgent');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'photo_approval_status') THEN
			CREATE TYPE photo_approval_status AS ENUM ('pending', 'approved', 'rejected');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'approval_status') THEN
			CREATE TYPE approval_status AS ENUM ('pending', 'approved', 'rejected');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		customer_name VARCHAR(255) NOT NULL,
		customer_address TEXT,
		customer_phone VARCHAR(64),
		customer_email VARCHAR(255),
		description TEXT,
		job_type VARCHAR(64) NOT NULL,
		priority job_priority NOT NULL DEFAULT 'medium',
		scheduled_start TIMESTAMPTZ NOT NULL,
		scheduled_end TIMESTAMPTZ NOT NULL,
		estimated_duration_minutes INTEGER NOT NULL DEFAULT 0,
		status job_status NOT NULL DEFAULT 'pending',
		assigned_to UUID,
		created_by UUID NOT NULL,
		completed_by UUID,
		completed_at TIMESTAMPTZ,
		notes TEXT,
		safety_checklist JSONB,
		materials_checklist JSONB,
		work_progress JSONB,
		safety_completion INTEGER NOT NULL DEFAULT 0 CHECK (safety_completion BETWEEN 0 AND 100),
		materials_completion INTEGER NOT NULL DEFAULT 0 CHECK (materials_completion BETWEEN 0 AND 100),
		work_progress_completion INTEGER NOT NULL DEFAULT 0 CHECK (work_progress_completion BETWEEN 0 AND 100),
		signature_url TEXT,
		completion_pending BOOLEAN NOT NULL DEFAULT FALSE,
		pending_notes TEXT,
		pending_photo_urls JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_jobs_schedule CHECK (scheduled_end > scheduled_start)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_assigned_to ON jobs (assigned_to);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_scheduled_start ON jobs (scheduled_start);`,
	`CREATE TABLE IF NOT EXISTS job_updates (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		user_id UUID NOT NULL,
		update_type VARCHAR(64) NOT NULL,
		notes TEXT,
		photo_urls JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_job_updates_job_id ON job_updates (job_id);`,
	`CREATE TABLE IF NOT EXISTS photo_approvals (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		job_update_id UUID NOT NULL REFERENCES job_updates(id) ON DELETE CASCADE,
		job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		photo_url TEXT NOT NULL,
		status photo_approval_status NOT NULL DEFAULT 'pending',
		comments TEXT,
		reviewed_by UUID,
		reviewed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_photo_approvals_update_url ON photo_approvals (job_update_id, photo_url);`,
	`CREATE INDEX IF NOT EXISTS idx_photo_approvals_job_id ON photo_approvals (job_id);`,
	`CREATE INDEX IF NOT EXISTS idx_photo_approvals_status ON photo_approvals (status);`,
	`CREATE TABLE IF NOT EXISTS clock_entries (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL,
		clock_in TIMESTAMPTZ NOT NULL,
		clock_out TIMESTAMPTZ,
		break_start TIMESTAMPTZ,
		break_end TIMESTAMPTZ,
		location_lat DOUBLE PRECISION,
		location_lng DOUBLE PRECISION,
		last_location_update TIMESTAMPTZ,
		approval_status approval_status NOT NULL DEFAULT 'pending',
		approved_by UUID,
		approved_at TIMESTAMPTZ,
		approval_comment TEXT,
		total_hours DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_clock_entries_user_id ON clock_entries (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_clock_entries_clock_in ON clock_entries (clock_in);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_clock_entries_open ON clock_entries (user_id) WHERE clock_out IS NULL;`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL,
		title VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		type VARCHAR(32) NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		related_job_id UUID REFERENCES jobs(id) ON DELETE SET NULL,
		created_by UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications (user_id, read);`,
	`CREATE TABLE IF NOT EXISTS technician_progress (
		user_id UUID PRIMARY KEY,
		xp INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1,
		streak INTEGER NOT NULL DEFAULT 0,
		last_clock_in VARCHAR(10),
		achievements JSONB,
		jobs_completed INTEGER NOT NULL DEFAULT 0,
		early_completions INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE OR REPLACE FUNCTION set_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_jobs_updated_at') THEN
			CREATE TRIGGER trg_jobs_updated_at
				BEFORE UPDATE ON jobs
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_photo_approvals_updated_at') THEN
			CREATE TRIGGER trg_photo_approvals_updated_at
				BEFORE UPDATE ON photo_approvals
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_clock_entries_updated_at') THEN
			CREATE TRIGGER trg_clock_entries_updated_at
				BEFORE UPDATE ON clock_entries
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_job_updates_immutable') THEN
			CREATE OR REPLACE FUNCTION reject_job_update_change()
			RETURNS TRIGGER AS $fn$
			BEGIN
				RAISE EXCEPTION 'job_updates rows are append-only';
			END;
			$fn$ LANGUAGE plpgsql;
			CREATE TRIGGER trg_job_updates_immutable
				BEFORE UPDATE ON job_updates
				FOR EACH ROW
				EXECUTE PROCEDURE reject_job_update_change();
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
