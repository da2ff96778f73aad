package capture

// extractionScript runs once per screen inside the page. It only reports raw
// attributes; role classification and selector ranking happen in Go.
const extractionScript = `(opts) => {
	const out = [];
	const options = opts || {};
	const trim = (s) => (s || '').replace(/\s+/g, ' ').trim();
	const testId = (el) => el.getAttribute('data-testid') || el.getAttribute('data-test-id') || '';
	const className = (el) => (typeof el.className === 'string' ? el.className : '');

	const labelFor = (el) => {
		let label = null;
		if (el.id) {
			try {
				label = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
			} catch (e) {
				label = null;
			}
		}
		if (!label) {
			label = el.closest('label');
		}
		return label ? trim(label.textContent) : '';
	};

	const tagIndex = (el) => Array.prototype.indexOf.call(document.getElementsByTagName(el.tagName), el);

	const base = (el, kind) => ({
		kind: kind,
		index: tagIndex(el),
		tag: el.tagName.toLowerCase(),
		id: el.id || '',
		name: el.getAttribute('name') || '',
		type: el.getAttribute('type') ? (el.type || el.getAttribute('type')) : '',
		placeholder: el.getAttribute('placeholder') || '',
		testId: testId(el),
		className: className(el),
		ariaLabel: el.getAttribute('aria-label') || '',
		disabled: el.hasAttribute('disabled'),
	});

	try {
		document.querySelectorAll('input').forEach((el) => {
			const type = (el.type || '').toLowerCase();
			if (type === 'submit' || type === 'button' || type === 'hidden') {
				return;
			}
			const rec = base(el, type === 'radio' ? 'radio' : 'input');
			rec.type = type;
			rec.value = el.value || '';
			if (type === 'radio') {
				rec.label = labelFor(el);
			}
			out.push(rec);
		});

		document.querySelectorAll('button, input[type="submit"]').forEach((el) => {
			const rec = base(el, 'button');
			rec.text = trim(el.tagName.toLowerCase() === 'input' ? el.value : el.textContent);
			out.push(rec);
		});

		document.querySelectorAll('a').forEach((el) => {
			const rec = base(el, 'link');
			rec.text = trim(el.textContent);
			rec.href = el.getAttribute('href') || '';
			out.push(rec);
		});

		const markers = '[data-testid*="avatar"], [data-test-id*="avatar"], .avatar, [class*="avatar"], [data-testid*="user"], [class*="user"]';
		document.querySelectorAll(markers).forEach((el) => {
			out.push(base(el, 'marker'));
		});

		if (options.includeText) {
			const needle = (options.textNeedle || '').toLowerCase();
			document.querySelectorAll('p, div, h1, h2, h3, span, [class*="message"]').forEach((el) => {
				const text = trim(el.textContent);
				if (!text || text.length > 300) {
					return;
				}
				if (needle && !text.toLowerCase().includes(needle)) {
					return;
				}
				const rec = base(el, 'text');
				rec.text = text;
				out.push(rec);
			});
		}
	} catch (e) {
		return { elements: out, error: String(e) };
	}

	return { elements: out, error: '' };
}`
