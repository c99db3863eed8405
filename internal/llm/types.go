package llm

import "support-triage/internal/llm/contract"

type Provider = contract.Provider

type ProviderConfig = contract.ProviderConfig

type ClassificationResult = contract.ClassificationResult

type HealthCheckResult = contract.HealthCheckResult

type UsageStats = contract.UsageStats

type UsageRecord = contract.UsageRecord
