package catalog

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/hyperjump/banshi/internal/models"
	"github.com/hyperjump/banshi/pkg/utils"
)

// DefaultRegion is the region assigned to services not tied to a prefecture.
const DefaultRegion = "湖南省本级"

// HunanPrefectures lists the 14 prefecture-level divisions of Hunan.
var HunanPrefectures = []string{
	"长沙", "株洲", "湘潭", "衡阳", "邵阳", "岳阳", "常德",
	"张家界", "益阳", "郴州", "永州", "怀化", "娄底", "湘西",
}

// KnownChannels are the publication channels used by the demonstration catalog.
var KnownChannels = []string{"Android", "IOS", "HarmonyOS", "微信小程序", "支付宝小程序", "PC端", "自助终端"}

var legalEntityMarkers = []string{"企业", "法人", "公司", "经营", "许可证"}

const demoServiceNames = `居民身份证住址变更换领，居民身份证损坏换领，居民身份证民族变更更正换领，居民身份证姓名变更换领，居民身份证到期换领，居民身份证遗失补领，码上监督码上办，政策通，个人中心-办事记录，个人中心-我的留言，人工总客服，视频预约，二级注册造价师证书，个体经营者，怀化二手房网签查询，怀化房源验真，怀化楼盘查询，怀化商品房网签查询，企业异常名录详细信息，企业养老，食品生产许可证，失业保险个人信息，烟草专卖批发企业许可证，一级注册建造师信息，严重违法失信企业名单，中华人民共和国二级建造师注册证书，中华人民共和国二级注册结构工程师注册执业，中华人民共和国二级注册建筑师注册证书，食安包保督导问题整改，制定食安风险防控清单，食安企业防控问题整改，检查问题食安企业整改，食安日管控，食安人员管理，食安人员培训，食安企业索证索票，食安企业停工停产申请，食安企业调休时间配置，食安通知公告查询，食安消毒留样记录管理，食安月调度，预警信息管理，食安自检自查，食安周排查，食安责任人管理，食品企业信息报备，食品企业追溯拆码，食品企业产品入库，食品企业产品出库，食品企业产品库存，食品企业原料入库，食品企业证书申报，用户个人中心，入驻商户列表，放心消费地图，创业孵化与指导，新生儿出生一件事，生育登记，出生医学证明办理，灵活就业人员参保，公积金提取，公积金贷款，不动产登记，居住证办理，医保报销，跨省异地就医备案，老年人优待证，高龄津贴，残疾人两项补贴，就业困难人员认定，失业登记，企业开办一窗通，税务注销，发票申领，长沙住房公积金查询，株洲不动产登记，湘潭社保查询，衡阳公积金提取，邵阳新生儿重名查询，岳阳景区预约，常德公交卡办理，张家界旅游投诉，益阳银城码，郴州公积金贷款，永州不动产查询，怀化入学报名，娄底中考成绩查询，湘西社保卡申领`

// DefaultRecords returns the built-in demonstration catalog. Attributes that
// vary per service are derived from a hash of the name, so repeated calls
// return identical records.
func DefaultRecords() []models.ServiceRecord {
	names := strings.Split(demoServiceNames, "，")
	records := make([]models.ServiceRecord, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		records = append(records, demoRecord(len(records), name))
	}
	return records
}

func demoRecord(index int, name string) models.ServiceRecord {
	h := xxhash.Sum64String(name)
	legal := isLegalEntityService(name)

	rec := models.ServiceRecord{
		Code:          fmt.Sprintf("SV-%d", 10000+index),
		Name:          name,
		ShortName:     ShortName(name, 8),
		Status:        "正常",
		Applicant:     models.ApplicantCitizen,
		Category:      "便民服务",
		Tags:          "民生保障",
		Region:        RegionFromName(name),
		Channels:      demoChannels(h),
		HighFrequency: (h>>40)%10 >= 8,
		Visits:        demoVisits(h),
	}
	if legal {
		rec.Applicant = models.ApplicantLegalEntity
		rec.Category = "准营准办"
		rec.Tags = "营商环境"
	}
	sat := 8.0 + float64((h>>48)%21)/10
	rec.Satisfaction = &sat
	return rec
}

func isLegalEntityService(name string) bool {
	for _, m := range legalEntityMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// RegionFromName infers the owning region from a prefecture named in the
// service name, falling back to DefaultRegion.
func RegionFromName(name string) string {
	for _, city := range HunanPrefectures {
		if !strings.Contains(name, city) {
			continue
		}
		if city == "湘西" {
			return "湘西土家族苗族自治州"
		}
		return city + "市"
	}
	return DefaultRegion
}

// ShortName truncates name to max runes, appending "..." when shortened.
func ShortName(name string, max int) string {
	return utils.Truncate(name, max)
}

func demoVisits(h uint64) int64 {
	bucket := (h >> 8) % 100
	spread := h >> 16
	switch {
	case bucket >= 95:
		return int64(100000 + spread%5000000)
	case bucket >= 80:
		return int64(10000 + spread%100000)
	default:
		return int64(100 + spread%5000)
	}
}

func demoChannels(h uint64) []string {
	count := 1 + int((h>>24)%5)
	start := int((h >> 32) % uint64(len(KnownChannels)))
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, KnownChannels[(start+i)%len(KnownChannels)])
	}
	return out
}
