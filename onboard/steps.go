package onboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quilr/qonboard/progress"
)

// Step titles.
const (
	titleOnboardAPI     = "Onboard API"
	titleFetchTenant    = "PostgreSQL — Fetch Tenant"
	titleMonitoringUser = "PostgreSQL — Create Monitoring User"
	titleApplyUpdates   = "PostgreSQL — Apply Updates"
	titleMergeTenant    = "Neo4j — MERGE Tenant Node"
)

// envRun carries the values shared by the steps of one (ticket, environment)
// sequence. The tenant is loaded by step 2, either from its action or from
// the progress cache when resuming.
type envRun struct {
	seq    *Sequencer
	ticket Ticket
	env    string
	domain string
	secret string
	tenant *Tenant
}

func (r *envRun) steps() []Step {
	return []Step{
		r.onboardAPIStep(),
		r.fetchTenantStep(),
		r.monitoringUserStep(),
		r.applyUpdatesStep(),
		r.mergeTenantStep(),
	}
}

func (r *envRun) relational(ctx context.Context) (RelationalStore, error) {
	db, err := r.seq.envs.Relational(ctx, r.env)
	if err != nil {
		return nil, fmt.Errorf("open relational store for %s: %w", r.env, err)
	}
	return db, nil
}

func (r *envRun) requireTenant() (Tenant, error) {
	if r.tenant == nil {
		return Tenant{}, fmt.Errorf("tenant for %s not loaded", r.domain)
	}
	return *r.tenant, nil
}

// =============================================================================
// Step 1: Onboard API
// =============================================================================

func (r *envRun) onboardAPIStep() Step {
	var (
		apiDomain string
		newUsers  []User
	)

	return Step{
		Ordinal: 1,
		Title:   titleOnboardAPI,
		Prepare: func(ctx context.Context) (Plan, error) {
			d, err := r.seq.provisioning.ResolveDomain(r.env)
			if errors.Is(err, ErrDomainUnavailable) {
				return Plan{
					AutoComplete: true,
					Reason:       fmt.Sprintf("No Onboard API domain for '%s' — skipping step 1", r.env),
				}, nil
			}
			if err != nil {
				return Plan{}, err
			}
			apiDomain = d

			db, err := r.relational(ctx)
			if err != nil {
				return Plan{}, err
			}

			newUsers = newUsers[:0]
			var rows, skipped []string
			for _, u := range r.ticket.Users {
				kind, exists, err := db.GetUserAccountType(ctx, u.Email)
				if err != nil {
					return Plan{}, fmt.Errorf("look up %s: %w", u.Email, err)
				}
				switch {
				case !exists:
					newUsers = append(newUsers, u)
					rows = append(rows, fmt.Sprintf("[%d]     %s  %s %s", len(newUsers), u.Email, u.Firstname, u.Lastname))
				case strings.EqualFold(kind, "credentials"):
					skipped = append(skipped, fmt.Sprintf("[skip]  %s  %s %s  (internal user — credentials account)",
						u.Email, u.Firstname, u.Lastname))
				default:
					skipped = append(skipped, fmt.Sprintf("[skip]  %s  %s %s  (already onboarded — %s account)",
						u.Email, u.Firstname, u.Lastname, kind))
				}
			}

			if len(newUsers) == 0 {
				return Plan{
					AutoComplete: true,
					Reason: fmt.Sprintf("All %d user(s) skipped for %s — no Onboard API calls needed",
						len(skipped), r.env),
				}, nil
			}

			title := fmt.Sprintf("%s  (%d new", titleOnboardAPI, len(newUsers))
			if len(skipped) > 0 {
				title += fmt.Sprintf(", %d skipped", len(skipped))
			}
			title += " user(s))"

			var b strings.Builder
			fmt.Fprintf(&b, "POST  %s\n\n", r.seq.provisioning.Endpoint(apiDomain))
			b.WriteString(strings.Join(append(rows, skipped...), "\n"))
			return Plan{Title: title, Preview: b.String()}, nil
		},
		Action: func(ctx context.Context) error {
			for _, u := range newUsers {
				resp, err := r.seq.provisioning.ProvisionUser(ctx, u, apiDomain)
				if err != nil {
					return fmt.Errorf("onboard %s: %w", u.Email, err)
				}
				r.seq.logger.Info("user onboarded", "ticket", r.ticket.Key, "env", r.env, "email", u.Email)
				r.seq.ui.Status(StatusOK, fmt.Sprintf("Onboard API — %s: %v", u.Email, resp))
			}
			return nil
		},
	}
}

// =============================================================================
// Step 2: Fetch tenant
// =============================================================================

func (r *envRun) fetchTenantStep() Step {
	return Step{
		Ordinal: 2,
		Title:   titleFetchTenant,
		Prepare: func(ctx context.Context) (Plan, error) {
			return Plan{
				Syntax: "sql",
				Preview: fmt.Sprintf("SELECT \"id\", \"subscriberId\", \"name\"\n"+
					"FROM   public.tenant\n"+
					"WHERE  \"name\" = '%s';", r.domain),
			}, nil
		},
		Action: func(ctx context.Context) error {
			if err := r.loadTenant(ctx); err != nil {
				return err
			}
			r.seq.ui.Status(StatusOK, fmt.Sprintf("Tenant — id=%s  subscriberid=%s", r.tenant.ID, r.tenant.SubscriberID))
			return nil
		},
		Resume: func(ctx context.Context) error {
			var t Tenant
			if r.seq.progress.CachedValue(r.ticket.Key, r.env, progress.CacheTenant, &t) && t.ID != "" {
				r.tenant = &t
				return nil
			}
			r.seq.logger.Warn("tenant missing from progress, fetching again", "ticket", r.ticket.Key, "env", r.env)
			return r.loadTenant(ctx)
		},
	}
}

// loadTenant reads the tenant row and caches it before the step is recorded.
func (r *envRun) loadTenant(ctx context.Context) error {
	db, err := r.relational(ctx)
	if err != nil {
		return err
	}
	t, err := db.GetTenant(ctx, r.domain)
	if err != nil {
		return err
	}
	if err := r.seq.progress.SetCachedValue(r.ticket.Key, r.env, progress.CacheTenant, t); err != nil {
		return err
	}
	r.tenant = &t
	return nil
}

// =============================================================================
// Step 3: Monitoring user
// =============================================================================

func (r *envRun) monitoringUserStep() Step {
	email := MonitoringEmail(r.domain)
	var pending NewMonitoringUser

	return Step{
		Ordinal: 3,
		Title:   titleMonitoringUser,
		Prepare: func(ctx context.Context) (Plan, error) {
			tenant, err := r.requireTenant()
			if err != nil {
				return Plan{}, err
			}
			db, err := r.relational(ctx)
			if err != nil {
				return Plan{}, err
			}
			roles, err := db.GetTenantRoleIDs(ctx, tenant.ID)
			if err != nil {
				return Plan{}, fmt.Errorf("load role ids: %w", err)
			}
			groups, err := db.GetTenantGroupIDs(ctx, tenant.ID)
			if err != nil {
				return Plan{}, fmt.Errorf("load group ids: %w", err)
			}
			// The ticket secret is hashed per environment.
			hash, err := r.seq.hash(r.secret)
			if err != nil {
				return Plan{}, err
			}
			pending = NewMonitoringUser{
				Email:        email,
				PasswordHash: hash,
				Tenant:       tenant,
				RoleIDs:      roles,
				GroupIDs:     groups,
			}

			return Plan{
				Syntax: "sql",
				Preview: fmt.Sprintf("INSERT INTO public.\"user\" (\n"+
					"    \"firstname\", \"lastname\", \"username\", \"email\", \"password\",\n"+
					"    \"subscriberId\", \"tenantIds\", \"roleIds\", \"groupIds\",\n"+
					"    \"accountType\", \"status\"\n"+
					") VALUES (\n"+
					"    'Quilr', 'Monitor', '%s', '%s', '<bcrypt>',\n"+
					"    '%s', '{%s}',\n"+
					"    '%s', '%s',\n"+
					"    'credentials', 'active'\n"+
					");",
					email, email, tenant.SubscriberID, tenant.ID, pgArray(roles), pgArray(groups)),
			}, nil
		},
		Action: func(ctx context.Context) error {
			db, err := r.relational(ctx)
			if err != nil {
				return err
			}
			created, err := db.CreateMonitoringUser(ctx, pending)
			if err != nil {
				return err
			}
			if err := r.seq.progress.SetCachedValue(r.ticket.Key, r.env, progress.CacheMonitoringUser,
				MonitoringUser{Email: email, Created: created}); err != nil {
				return err
			}
			if created {
				r.seq.ui.ShowCredentials(email, r.secret, false)
				r.seq.ui.Status(StatusOK, fmt.Sprintf("Monitoring user created: %s (%s)", email, r.env))
			} else {
				r.seq.ui.Status(StatusWarn, fmt.Sprintf("Monitoring user %s already existed in %s — skipped", email, r.env))
			}
			return nil
		},
		Resume: func(ctx context.Context) error {
			r.seq.ui.ShowCredentials(email, r.secret, true)
			return nil
		},
	}
}

func pgArray(ids []string) string {
	return "{" + strings.Join(ids, ",") + "}"
}

// =============================================================================
// Step 4: Apply updates
// =============================================================================

func (r *envRun) applyUpdatesStep() Step {
	return Step{
		Ordinal: 4,
		Title:   titleApplyUpdates,
		Prepare: func(ctx context.Context) (Plan, error) {
			return Plan{
				Syntax: "sql",
				Preview: fmt.Sprintf("UPDATE public.tenant\n"+
					"  SET \"license_config\" = '{\"ai_axis_enabled\": true}'\n"+
					"  WHERE \"name\" = '%s';\n"+
					"\n"+
					"UPDATE public.subscriber\n"+
					"  SET \"is_onboarded\"        = TRUE,\n"+
					"      \"is_analysisComplete\" = TRUE,\n"+
					"      \"areControlsEnabled\"  = TRUE\n"+
					"  WHERE \"name\" = '%s';", r.domain, r.domain),
			}, nil
		},
		Action: func(ctx context.Context) error {
			db, err := r.relational(ctx)
			if err != nil {
				return err
			}
			res, err := db.ApplyOnboardingUpdates(ctx, r.domain)
			if err != nil {
				return err
			}
			r.seq.logger.Info("onboarding updates applied", "ticket", r.ticket.Key, "env", r.env,
				"domain", r.domain, "tenant_rows", res.TenantRows, "subscriber_rows", res.SubscriberRows)
			r.seq.ui.Status(StatusOK, fmt.Sprintf("PostgreSQL updates applied for %s (%s)", r.domain, r.env))
			return nil
		},
	}
}

// =============================================================================
// Step 5: Merge tenant node
// =============================================================================

func (r *envRun) mergeTenantStep() Step {
	return Step{
		Ordinal: 5,
		Title:   titleMergeTenant,
		Prepare: func(ctx context.Context) (Plan, error) {
			tenant, err := r.requireTenant()
			if err != nil {
				return Plan{}, err
			}
			return Plan{
				Syntax: "cypher",
				Preview: fmt.Sprintf("MERGE (TENANT_0:TENANT {\n"+
					"  id:         '%s',\n"+
					"  subscriber: '%s',\n"+
					"  tenant:     '%s'\n"+
					"})\n"+
					"ON CREATE SET\n"+
					"  TENANT_0.creationTime = <now>,\n"+
					"  TENANT_0.internalId   = randomUUID(),\n"+
					"  TENANT_0.new          = true\n"+
					"ON MATCH SET\n"+
					"  TENANT_0.new          = false,\n"+
					"  TENANT_0.timestamp    = timestamp()",
					tenant.ID, tenant.SubscriberID, tenant.ID),
			}, nil
		},
		Action: func(ctx context.Context) error {
			tenant, err := r.requireTenant()
			if err != nil {
				return err
			}
			graph, err := r.seq.envs.Graph(ctx, r.env)
			if err != nil {
				return fmt.Errorf("open graph store for %s: %w", r.env, err)
			}
			res, err := graph.MergeTenantNode(ctx, tenant)
			if err != nil {
				return err
			}
			state := "MATCHED"
			if res.Created {
				state = "CREATED"
			}
			r.seq.logger.Info("tenant node merged", "ticket", r.ticket.Key, "env", r.env,
				"state", state, "internal_id", res.InternalID)
			r.seq.ui.Status(StatusOK, fmt.Sprintf("Neo4j TENANT node %s for %s (%s)", state, tenant.Name, r.env))
			return nil
		},
	}
}
