package report

import (
	"html/template"
	"io"
	"time"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
)

const htmlTpl = `
<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>公司雷达 | {{ .Target }}</title>
    <script src="https://cdn.jsdelivr.net/npm/marked/marked.min.js"></script>
    <style>
        :root {
            --primary-color: #2563eb;
            --bg-color: #f8fafc;
            --card-bg: #ffffff;
            --text-main: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            background-color: var(--bg-color);
            color: var(--text-main);
            line-height: 1.6;
            margin: 0;
            padding: 20px;
        }
        .container { max-width: 900px; margin: 0 auto; }
        header { text-align: center; margin-bottom: 40px; padding: 20px 0; }
        h1 { font-size: 2.2rem; margin: 0 0 10px 0; }
        .meta-info { color: var(--text-secondary); }
        .section-card {
            background: var(--card-bg);
            border-radius: 12px;
            padding: 24px;
            margin-bottom: 24px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.05);
            border: 1px solid var(--border-color);
        }
        .section-title { font-size: 1.4rem; font-weight: 800; color: #0f172a; margin-bottom: 12px; }
        .degraded-tag {
            background: #fef3c7; color: #92400e;
            padding: 2px 10px; border-radius: 12px; font-size: 0.8rem; margin-left: 10px;
        }
        .findings { margin-top: 12px; padding-left: 20px; color: #334155; }
        .findings li { margin-bottom: 6px; }
        .references { font-size: 0.9rem; }
        .ref-list { list-style: none; padding: 0; }
        .ref-list li { margin-bottom: 6px; }
        .ref-list a { color: var(--primary-color); text-decoration: none; }
        .ref-list a:hover { text-decoration: underline; }
        footer {
            text-align: center; color: var(--text-secondary);
            padding: 20px 0; border-top: 1px dashed var(--border-color); font-size: 0.9rem;
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>📡 公司研究报告：{{ .Target }}</h1>
            <div class="meta-info">{{ .Date }} • 覆盖 {{ len .Sections }} 个维度 • 引用 {{ .Metrics.SourceCount }} 个来源</div>
        </header>

        {{range .Sections}}
        <div class="section-card">
            <div class="section-title">{{ facetTitle .Facet }}
                {{if .Degraded}}<span class="degraded-tag">模板降级</span>{{end}}
            </div>
            <div class="markdown-content"></div>
            <div style="display:none" class="raw-summary">{{ .Summary }}</div>
            {{if .Findings}}
            <ul class="findings">
                {{range $k, $v := .Findings}}
                <li><b>{{$k}}</b>: {{$v}}</li>
                {{end}}
            </ul>
            {{end}}
        </div>
        {{end}}

        <div class="section-card references">
            <div class="section-title">🔗 参考来源</div>
            <ul class="ref-list">
                {{range .Sources}}
                <li><a href="{{.URL}}" target="_blank">{{.Title}}</a> <span style="color:#94a3b8; font-size: 0.8em">({{ .Provider }})</span></li>
                {{end}}
            </ul>
        </div>

        <footer>
            质量评分 {{ printf "%.1f" .Metrics.Score }}/100 •
            迭代 {{ .Metrics.Iterations }} 轮 •
            耗时 {{ .ElapsedText }} •
            成本估算 ${{ printf "%.4f" .Metrics.CostUSD }} •
            {{ .Metrics.SourceCount }} 个来源
        </footer>
    </div>

    <script>
        document.addEventListener('DOMContentLoaded', function() {
            const summaries = document.querySelectorAll('.raw-summary');
            summaries.forEach(el => {
                el.previousElementSibling.innerHTML = marked.parse(el.textContent);
            });
        });
    </script>
</body>
</html>
`

// htmlData 模板渲染数据
type htmlData struct {
	*Report
	Date        string
	ElapsedText string
}

// RenderHTML 渲染 HTML 版本的报告
func (r *Report) RenderHTML(w io.Writer) error {
	t, err := template.New("report").
		Funcs(template.FuncMap{
			"facetTitle": func(f model.Facet) string {
				if name, ok := facetTitles[f]; ok {
					return name
				}
				return string(f)
			},
		}).
		Parse(htmlTpl)
	if err != nil {
		return err
	}

	data := htmlData{
		Report:      r,
		Date:        time.Now().Format("2006-01-02"),
		ElapsedText: r.Metrics.Elapsed.Round(time.Second).String(),
	}
	return t.Execute(w, data)
}
