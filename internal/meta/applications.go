package meta

// 启动器程序路径（Flashpoint 安装目录内的相对路径）。
const (
	SecurePlayer  = `FPSoftware\FlashpointSecurePlayer.exe`
	Java          = `FPSoftware\startJava.bat`
	JavaInBrowser = `FPSoftware\startJavaInBrowser.bat`
	Basilisk      = `FPSoftware\Basilisk-Portable\Basilisk-Portable.exe`
	Unity         = `FPSoftware\startUnity.bat`
	ActiveX       = `FPSoftware\startActiveX.bat`
	Groove        = `FPSoftware\startGroove.bat`
	SVR           = `FPSoftware\startSVR.bat`
	ShiVa3D       = `FPSoftware\startShiVa.bat`
	BrowserMode   = `:browser_mode:`
	Chrome        = `FPSoftware\startChrome.bat`
	Netscape      = `FPSoftware\startNetscape.bat`
	FPNavigator   = `FPSoftware\fpnavigator-portable\FPNavigator.exe`

	// Flash 是默认 Flash 播放器（flashplayer 32）。
	Flash = `FPSoftware\Flash\flashplayer_32_sa.exe`
	// Shockwave 是默认 Shockwave 播放器（PJ101）。
	Shockwave = `FPSoftware\Shockwave\PJ101\SPR.exe`
)

// FlashPlayers 按版本号索引 Flash 播放器。
// 带 "r" 的版本（如 "6r21"）位于独立子目录；"0" 是默认版本。
var FlashPlayers = map[string]string{
	"0":    Flash,
	"32":   Flash,
	"29":   `FPSoftware\Flash\flashplayer29_0r0_171_win_sa.exe`,
	"28":   `FPSoftware\Flash\flashplayer28_0r0_161_win_sa.exe`,
	"27":   `FPSoftware\Flash\flashplayer27_0r0_187_win_sa.exe`,
	"19":   `FPSoftware\Flash\flashplayer19_0r0_245_sa.exe`,
	"14":   `FPSoftware\Flash\flashplayer14_0r0_179_win_sa.exe`,
	"11":   `FPSoftware\Flash\flashplayer11_9r900_152_win_sa_debug.exe`,
	"10":   `FPSoftware\Flash\flashplayer_10_3r183_90_win_sa.exe`,
	"9":    `FPSoftware\Flash\flashplayer9r277_win_sa.exe`,
	"9r16": `FPSoftware\Flash\9r16\SAFlashPlayer.exe`,
	"8r22": `FPSoftware\Flash\8r22\SAFlashPlayer.exe`,
	"7":    `FPSoftware\Flash\flashplayer_7_sa.exe`,
	"7r14": `FPSoftware\Flash\7r14\SAFlashPlayer.exe`,
	"6r21": `FPSoftware\Flash\6r21\SAFlashPlayer.exe`,
	"6r4":  `FPSoftware\Flash\6r4\SAFlashPlayer.exe`,
	"5r30": `FPSoftware\Flash\5r30\FlashPla.exe`,
	"4r7":  `FPSoftware\Flash\4r7\FlashPla.exe`,
	"4r4":  `FPSoftware\Flash\4r4\FlashPla.exe`,
	"3r8":  `FPSoftware\Flash\3r8\SwFlsh32.exe`,
	"2r11": `FPSoftware\Flash\2r11\SwFlsh32.exe`,
}

// ShockwavePlayers 按版本索引 Shockwave 播放器。
// 后缀 D/S/P 分别是调试版、SPRS 与 Projector，提交的 curation 一般只用无后缀版本。
var ShockwavePlayers = func() map[string]string {
	m := map[string]string{"0": Shockwave}
	for _, v := range []string{"9", "12", "101", "851", "1103", "1159"} {
		dir := `FPSoftware\Shockwave\PJ` + v + `\`
		m[v] = dir + "SPR.exe"
		m[v+"D"] = dir + "SPRD.exe"
		m[v+"S"] = dir + "SPRS.exe"
		m[v+"P"] = dir + "Projector.exe"
	}
	return m
}()

// Applications 是全部已知启动器路径。
var Applications = func() Set {
	s := newSet(
		SecurePlayer, Unity, Java, JavaInBrowser, Basilisk, BrowserMode, Chrome,
		Netscape, FPNavigator, ActiveX, Groove, SVR, ShiVa3D,
	)
	for _, p := range FlashPlayers {
		s[p] = struct{}{}
	}
	for _, p := range ShockwavePlayers {
		s[p] = struct{}{}
	}
	return s
}()
