package ocm

// 接口路径，均相对于实例基础地址。
const (
	AssetsPath  = "management/api/v1.1/assets"
	NativePath  = "published/api/v1.1/assets/%s/native"
	MembersPath = "management/api/v1.1/repositories/%s/members"

	UserAgent = "ocm-export/1.0"
)
