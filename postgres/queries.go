package postgres

// LicenseConfig is written to public.tenant.license_config on onboarding.
const LicenseConfig = `{"ai_axis_enabled": true}`

const (
	queryAccountType = `SELECT "accountType" FROM public."user" WHERE "email" = $1 LIMIT 1`

	queryUserExists = `SELECT 1 FROM public."user" WHERE "email" = $1 LIMIT 1`

	queryTenant = `SELECT "id"::text, "subscriberId"::text, "name"
		FROM public.tenant
		WHERE "name" = $1`

	queryRoleIDs = `SELECT "id"::text FROM public.roles
		WHERE "tenantId" = $1::uuid AND "deletedAt" IS NULL`

	queryGroupIDs = `SELECT "id"::text FROM public."group"
		WHERE "tenantId" = $1::uuid AND "deletedAt" IS NULL`

	insertMonitoringUser = `INSERT INTO public."user" (
			"firstname", "lastname", "username", "email", "password",
			"subscriberId", "tenantIds", "roleIds", "groupIds",
			"status", "verification_status", "createdby", "updatedby",
			"createdon", "updatedon", "accountType", "emailSent"
		) VALUES (
			'Quilr', 'Monitor', $1, $2, $3,
			$4::uuid, $5, $6, $7,
			'active', 'unverified', 'QOnboard', 'QOnboard',
			NOW(), NOW(), 'credentials', FALSE
		)`

	updateTenantLicense = `UPDATE public.tenant
		SET "license_config" = $1::jsonb
		WHERE "name" = $2`

	updateSubscriber = `UPDATE public.subscriber
		SET "is_onboarded" = TRUE,
			"is_analysisComplete" = TRUE,
			"areControlsEnabled" = TRUE
		WHERE "name" = $1`
)
