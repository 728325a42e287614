package constants

// Redis 키 상수. 키 형식을 한 곳에서 관리해 오타로 인한 캐시 불일치를 막는다.
const (
	// CompanyContextKeyFmt 회사 프로필 캐시: company:ctx:<company_id>
	CompanyContextKeyFmt = "company:ctx:%d"

	// SessionFinalizeLockFmt 세션 최종 결과 기록 잠금: lock:interview:finalize:<interview_id>
	// 최종 레코드는 세션당 정확히 한 번만 기록되어야 한다.
	SessionFinalizeLockFmt = "lock:interview:finalize:%d"
)
