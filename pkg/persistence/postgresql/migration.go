package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE flows (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				status VARCHAR(20) NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'RUNNING', 'COMPLETED')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_flows_user_id ON flows(user_id);
			CREATE INDEX idx_flows_status ON flows(status);

			CREATE TABLE lead_sources (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				contacts JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_lead_sources_user_id ON lead_sources(user_id);

			CREATE TABLE email_templates (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				subject TEXT NOT NULL,
				body TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_email_templates_user_id ON email_templates(user_id);
		`,
		2: `
			-- Scheduled emails track jobs handed to the delayed job queue.
			-- Rows outlive their flow only until the flow delete cascades.
			CREATE TABLE scheduled_emails (
				id VARCHAR(255) PRIMARY KEY,
				flow_id VARCHAR(255) NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
				job_id VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL DEFAULT '',
				recipient VARCHAR(320) NOT NULL DEFAULT '',
				send_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_scheduled_emails_flow_id ON scheduled_emails(flow_id);
			CREATE INDEX idx_scheduled_emails_send_at ON scheduled_emails(flow_id, send_at);
			CREATE UNIQUE INDEX idx_scheduled_emails_job_id ON scheduled_emails(job_id);
		`,
	}
}
