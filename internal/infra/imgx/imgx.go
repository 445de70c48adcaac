package imgx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // logo 常见为 gif
	_ "image/jpeg"
	"image/png"
)

// ToPNG 把任意已注册格式（GIF/JPEG/PNG）的图片解码后重新编码为 PNG。
//
// logo.png 与 ss.png 的文件名固定，源站给的可能是任意格式，统一转码后
// 文件扩展名与内容一致。GIF 只取第一帧。
func ToPNG(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("图片为空")
	}

	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("解码图片失败：%w", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}
	if format == "png" {
		return src, nil
	}

	var out bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
